package graph

// Action is one metadata record attached to a node: status, error, label,
// workspace and similar facts appended while the node is active. Actions are
// append-only; the node itself is never structurally mutated.
type Action interface {
	ActionName() string
}

// StatusAction records the execution status of a node.
type StatusAction struct {
	Status NodeStatus `json:"status"`
}

func (a StatusAction) ActionName() string { return "status" }

// NodeStatus defines the possible states of a node execution.
type NodeStatus string

const (
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// ErrorAction records a failure message for a node.
type ErrorAction struct {
	Message string `json:"message"`
}

func (a ErrorAction) ActionName() string { return "error" }

// LabelAction carries a human-readable label for a node.
type LabelAction struct {
	Label string `json:"label"`
}

func (a LabelAction) ActionName() string { return "label" }

// StageAction marks a block start as a named pipeline stage.
type StageAction struct {
	Name string `json:"name"`
}

func (a StageAction) ActionName() string { return "stage" }

// WorkspaceAction records the workspace path a node executed in.
type WorkspaceAction struct {
	Path string `json:"path"`
}

func (a WorkspaceAction) ActionName() string { return "workspace" }
