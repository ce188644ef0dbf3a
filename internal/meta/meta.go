// Package meta holds endpoint metadata shared by the runtime and the
// schema builder. It is internal so that Endpoint stays sealed.
package meta

import (
	"reflect"
	"strings"
)

// MethodMetadata describes a registered endpoint.
type MethodMetadata struct {
	Name string
	Path string

	HTTPMethod string
	Request    reflect.Type
	Headers    reflect.Type // nil when the endpoint takes no headers
	Response   reflect.Type
	Error      reflect.Type // nil for the default error envelope

	Readonly      bool
	Description   string
	Deprecated    string
	Serialization []string
}

// MountPath returns "/path/name".
func (m *MethodMetadata) MountPath() string {
	p := strings.Trim(m.Path, "/")
	if p == "" {
		return "/" + m.Name
	}
	return "/" + p + "/" + m.Name
}
