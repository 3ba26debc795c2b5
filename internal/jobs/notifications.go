package jobs

// notificationQueue holds one-shot messages for pollers. Each message is
// handed to exactly one caller of pop. Callers hold the Runner's mutex.
type notificationQueue struct {
	pending []string
}

func (q *notificationQueue) push(message string) {
	q.pending = append(q.pending, message)
}

func (q *notificationQueue) pop() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	message := q.pending[0]
	q.pending[0] = ""
	q.pending = q.pending[1:]
	return message, true
}

func (q *notificationQueue) len() int {
	return len(q.pending)
}
