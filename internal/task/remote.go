package task

import "github.com/google/uuid"

// MaxMsgLength bounds a remote-task's outgoing message.
const MaxMsgLength = 254

// RemoteStatus is the remote-task status word carried on the wire:
// 1 while the request is in flight, 0 once a response has been filled in.
type RemoteStatus int

const (
	RemoteRecv RemoteStatus = 0
	RemoteSend RemoteStatus = 1
)

// RemoteTask is a request shipped to the external transport and answered
// asynchronously via the paired outbound/inbound message queues. It is
// created by SendRemote on behalf of the calling task,
// placed on the outbound queue, and later reappears on the inbound queue
// with Status/Data updated by the transport.
type RemoteTask struct {
	ID     string
	Status RemoteStatus

	Message string

	// Data is the response payload. DataOwned records the ownership
	// split: if the caller passed a non-nil buffer with
	// sizeofArgs == 0, the transport writes into that buffer in place
	// (caller-owned); otherwise the remote task owns an allocation sized
	// sizeofArgs.
	Data      []byte
	DataOwned bool

	// Caller is a non-owning handle to the task that issued the request.
	// It forms a parent->remote->parent reference that is only ever
	// broken at response time: the executor contract guarantees a
	// task suspended for a remote response is never freed out from under
	// this pointer.
	Caller *Task

	Blocking bool
}

// NewRemoteTask builds a remote-task record, truncating message to
// MaxMsgLength.
func NewRemoteTask(caller *Task, message string, args []byte, sizeofArgs int, blocking bool) *RemoteTask {
	if len(message) > MaxMsgLength {
		message = message[:MaxMsgLength]
	}

	data := args
	if sizeofArgs != 0 {
		data = make([]byte, sizeofArgs)
		copy(data, args)
	}

	return &RemoteTask{
		ID:        uuid.New().String(),
		Status:    RemoteSend,
		Message:   message,
		Data:      data,
		DataOwned: sizeofArgs != 0,
		Caller:    caller,
		Blocking:  blocking,
	}
}
