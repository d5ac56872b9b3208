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

// Package sideinput bridges the side-input contract: a periodic call that
// may produce a new value of the side input.
package sideinput

import "context"

// DirPath is where side input values are mounted in the containers that
// consume them.
const DirPath = "/var/numaflow/side-inputs"

// SideInputRetriever is the side-input contract. ok is false when there is
// no new value to broadcast.
type SideInputRetriever interface {
	RetrieveSideInput(ctx context.Context) (value []byte, ok bool)
}
