package notifier

const (
	TopicStep = "step"
	TopicRun  = "run"
)

type Notification struct {
	Topic string
	Data  map[string]interface{}
}

// Notifier receives the outcome of every replayed step and of the whole run.
type Notifier interface {
	Notify(n Notification)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Notification) {}
