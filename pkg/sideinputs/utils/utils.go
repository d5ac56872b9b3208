/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// CheckFileExists reports whether fileName exists.
func CheckFileExists(fileName string) bool {
	_, err := os.Stat(fileName)
	return !os.IsNotExist(err)
}

// UpdateSideInputFile points the symlink fileSymLink to a new file holding
// value. Readers of the link see either the old or the new value, never a
// partial write. It reports whether the value changed; an unchanged value
// leaves the link as is.
func UpdateSideInputFile(ctx context.Context, fileSymLink string, value []byte) (bool, error) {
	log := logging.FromContext(ctx)
	if current, err := FetchSideInputFileValue(fileSymLink); err == nil && bytes.Equal(current, value) {
		return false, nil
	}

	dir, base := filepath.Dir(fileSymLink), filepath.Base(fileSymLink)
	f, err := os.CreateTemp(dir, base+"_")
	if err != nil {
		return false, fmt.Errorf("failed to create side input file for %s: %w", fileSymLink, err)
	}
	newFileName := f.Name()
	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(newFileName)
		return false, fmt.Errorf("failed to write side input file %s: %w", newFileName, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(newFileName)
		return false, fmt.Errorf("failed to write side input file %s: %w", newFileName, err)
	}
	if err := os.Chmod(newFileName, 0644); err != nil {
		log.Warnw("Failed to make side input file readable", zap.String("file", newFileName), zap.Error(err))
	}

	oldFilePath, _ := os.Readlink(fileSymLink)

	// rename over the link is atomic, writing the link in place is not
	symlinkPathTmp := newFileName + ".link"
	if err := os.Symlink(newFileName, symlinkPathTmp); err != nil {
		_ = os.Remove(newFileName)
		return false, fmt.Errorf("failed to link side input file %s: %w", newFileName, err)
	}
	if err := os.Rename(symlinkPathTmp, fileSymLink); err != nil {
		_ = os.Remove(symlinkPathTmp)
		_ = os.Remove(newFileName)
		return false, fmt.Errorf("failed to update symlink for side input file %s: %w", newFileName, err)
	}

	if oldFilePath != "" && CheckFileExists(oldFilePath) {
		if err := os.Remove(oldFilePath); err != nil {
			log.Errorw("Failed to remove old side input file", zap.String("file", oldFilePath), zap.Error(err))
		}
	}
	return true, nil
}

// FetchSideInputFileValue reads the current value behind a side input link.
func FetchSideInputFileValue(filePath string) ([]byte, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read side input %s file: %w", filePath, err)
	}
	return b, nil
}
