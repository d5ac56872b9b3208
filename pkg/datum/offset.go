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

package datum

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// Offset identifies a message read from a source, for acks and nacks.
type Offset struct {
	Value       []byte
	PartitionID int32
}

func NewOffset(value []byte, partitionID int32) Offset {
	return Offset{Value: value, PartitionID: partitionID}
}

// Equal compares the bytes and the partition.
func (o Offset) Equal(other Offset) bool {
	return o.PartitionID == other.PartitionID && bytes.Equal(o.Value, other.Value)
}

func (o Offset) String() string {
	return fmt.Sprintf("%s-%d", base64.StdEncoding.EncodeToString(o.Value), o.PartitionID)
}
