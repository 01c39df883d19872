//go:build sonic

package output

import (
	"github.com/bytedance/sonic"
)

var jsonMarshalIndent = sonic.ConfigStd.MarshalIndent
