//go:build !sonic

package output

import (
	"github.com/goccy/go-json"
)

var jsonMarshalIndent = json.MarshalIndent
