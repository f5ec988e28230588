package domain

// TaskDescriptor is one unit of work handed to the task pool. The pool never
// looks inside it.
type TaskDescriptor struct {
	Label string
	Ref   string
}
