package queue

// Subjects published by the gateway. Downstream consumers (billing
// reconciliation, the dashboard feed) subscribe to these.
const (
	SubjectPurchaseCompleted = "analysis.purchase.completed"
	SubjectPurchaseFailed    = "analysis.purchase.failed"
	SubjectPurchaseRefunded  = "analysis.purchase.refunded"
	SubjectPreviewGenerated  = "analysis.preview.generated"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}
