package types

// Status is the per-chat lifecycle status. It is the sole concurrency gate:
// a chat accepts a new turn only while not RUNNING.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ClientMessage is one persisted, ordered, append-only entry of the chat
// message log. Entries with Running set are mutable until the matching
// task-end; all other entries are immutable once written. Insertion order
// is the canonical replay order.
type ClientMessage struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // "user" | "agent" | "page-create" | "error" | task kind
	Content string `json:"content,omitempty"`
	Running *bool  `json:"running,omitempty"`
	TaskID  string `json:"taskId,omitempty"`
	Page    string `json:"page,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Page is an artifact created during a run, accumulated in an ordered
// sequence scoped to the chat.
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// AgentMessage is one entry of the provider-native conversation history.
type AgentMessage struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// Context is the conversation history plus per-capability side state. It is
// owned by the chat session and round-tripped unmodified; only the agent
// capability mutates it.
type Context struct {
	Agent []AgentMessage `json:"agent"`
	Board map[string]any `json:"board,omitempty"`
}

// ChatRecord is the durable unit owned by the store. The session holds an
// in-memory working copy during a run and writes back at the run boundary.
type ChatRecord struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Status   Status          `json:"status"`
	Context  Context         `json:"context"`
	Messages []ClientMessage `json:"messages"`
	Pages    []Page          `json:"pages"`
	Created  int64           `json:"createdAt"`
	Updated  int64           `json:"updatedAt"`
}

// ChatSummary is the listing view of a chat.
type ChatSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Created int64  `json:"createdAt"`
	Updated int64  `json:"updatedAt"`
}

// Summary returns the listing view of the record.
func (r *ChatRecord) Summary() ChatSummary {
	return ChatSummary{
		ID:      r.ID,
		Title:   r.Title,
		Status:  r.Status,
		Created: r.Created,
		Updated: r.Updated,
	}
}
