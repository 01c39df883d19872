package synclogic

import "github.com/openmined/syftmirror/internal/update"

type OpType string

const (
	OpWriteRemote  OpType = "WriteRemote"
	OpWriteLocal   OpType = "WriteLocal"
	OpDeleteRemote OpType = "DeleteRemote"
	OpDeleteLocal  OpType = "DeleteLocal"
)

// SyncOperation is one action the sync logic wants taken. Local and Remote
// carry the node's path.
type SyncOperation struct {
	Type   OpType         `json:"type" yaml:"type"`
	Path   string         `json:"path" yaml:"path"`
	Local  *update.Update `json:"local,omitempty" yaml:"local,omitempty"`
	Remote *update.Update `json:"remote,omitempty" yaml:"remote,omitempty"`
}
