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

package transport

import (
	"fmt"

	"github.com/numaproj/numaflow-go/pkg/info"
)

const DefaultGRPCMaxMessageSize = 64 * 1024 * 1024

// Kind is a UDF contract served over its own socket.
type Kind string

const (
	Map             Kind = "map"
	BatchMap        Kind = "batchmap"
	MapStream       Kind = "mapstream"
	Reduce          Kind = "reduce"
	ReduceStream    Kind = "reducestream"
	SessionReduce   Kind = "sessionreduce"
	Sink            Kind = "sink"
	Source          Kind = "source"
	SourceTransform Kind = "sourcetransform"
	Accumulator     Kind = "accumulator"
	SideInput       Kind = "sideinput"
)

// Kinds lists every supported kind.
var Kinds = []Kind{Map, BatchMap, MapStream, Reduce, ReduceStream, SessionReduce, Sink, Source, SourceTransform, Accumulator, SideInput}

type endpoint struct {
	sockAddr       string
	serverInfoFile string
}

var endpoints = map[Kind]endpoint{
	Map:             {"/var/run/numaflow/map.sock", "/var/run/numaflow/mapper-server-info"},
	BatchMap:        {"/var/run/numaflow/batchmap.sock", "/var/run/numaflow/batchmapper-server-info"},
	MapStream:       {"/var/run/numaflow/mapstream.sock", "/var/run/numaflow/mapstreamer-server-info"},
	Reduce:          {"/var/run/numaflow/reduce.sock", "/var/run/numaflow/reducer-server-info"},
	ReduceStream:    {"/var/run/numaflow/reducestream.sock", "/var/run/numaflow/reducestreamer-server-info"},
	SessionReduce:   {"/var/run/numaflow/sessionreduce.sock", "/var/run/numaflow/sessionreducer-server-info"},
	Sink:            {"/var/run/numaflow/sink.sock", "/var/run/numaflow/sinker-server-info"},
	Source:          {"/var/run/numaflow/source.sock", "/var/run/numaflow/sourcer-server-info"},
	SourceTransform: {"/var/run/numaflow/sourcetransform.sock", "/var/run/numaflow/sourcetransformer-server-info"},
	Accumulator:     {"/var/run/numaflow/accumulator.sock", "/var/run/numaflow/accumulator-server-info"},
	SideInput:       {"/var/run/numaflow/sideinput.sock", "/var/run/numaflow/sideinput-server-info"},
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := endpoints[k]; !ok {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return k, nil
}

// SockAddr is the default socket path of the kind.
func (k Kind) SockAddr() string {
	return endpoints[k].sockAddr
}

// ServerInfoFile is the default server info file path of the kind.
func (k Kind) ServerInfoFile() string {
	return endpoints[k].serverInfoFile
}

// MapMode is the map flavour announced to the platform in the server info
// metadata under MapModeKey.
type MapMode string

const (
	MapModeKey = "MAP_MODE"

	UnaryMapMode  MapMode = "unary-map"
	StreamMapMode MapMode = "stream-map"
	BatchMapMode  MapMode = "batch-map"
)

// ServerInfo returns the info written for the kind. Map kinds carry their
// map mode in the metadata.
func (k Kind) ServerInfo() *info.ServerInfo {
	si := &info.ServerInfo{
		Protocol:               info.UDS,
		Language:               info.Go,
		MinimumNumaflowVersion: info.MinimumNumaflowVersion,
		Version:                info.GetSDKVersion(),
		Metadata:               map[string]string{},
	}
	switch k {
	case Map:
		si.Metadata[MapModeKey] = string(UnaryMapMode)
	case MapStream:
		si.Metadata[MapModeKey] = string(StreamMapMode)
	case BatchMap:
		si.Metadata[MapModeKey] = string(BatchMapMode)
	}
	return si
}
