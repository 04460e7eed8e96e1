package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Drain moves the queued writes into dst and empties the queue, keeping its capacity.
//
// Parameters:
//   - dst: the slice to append to
//   - queue: the pending writes
//
// Returns:
//   - []BufferWrite: dst with the writes appended
//   - []BufferWrite: the emptied queue
func Drain(dst, queue []BufferWrite) ([]BufferWrite, []BufferWrite) {
	dst = append(dst, queue...)
	clear(queue)
	return dst, queue[:0]
}
