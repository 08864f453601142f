package domain

// QueuedJob is the broker payload handed from the API to the worker.
type QueuedJob struct {
	Job     Job    `json:"job"`
	Content string `json:"content,omitempty"`
}

// JobMessage wraps a delivery with its acknowledgement callbacks.
type JobMessage struct {
	Job     *Job
	Content string
	Ack     func() error
	Nack    func(requeue bool) error
}
