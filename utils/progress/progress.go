package progress

import "context"

// UpdateType represents different types of progress updates
type UpdateType int

const (
	UpdateStep UpdateType = iota
	UpdateFragment
	UpdateComplete
	UpdateError
)

// Update represents a progress update from a generation run
type Update struct {
	Type    UpdateType
	Message string
	Error   error
	// Chars is the number of characters received so far, for fragment updates
	Chars int
}

// Writer is an interface for handling progress updates
type Writer interface {
	WriteProgress(update Update) error
}

// channelWriter implements Writer by sending updates to a channel
type channelWriter struct {
	ctx context.Context
	ch  chan<- Update
}

// NewChannelWriter sends updates to ch until ctx is done; later updates return the context error
func NewChannelWriter(ctx context.Context, ch chan<- Update) Writer {
	return &channelWriter{ctx: ctx, ch: ch}
}

func (w *channelWriter) WriteProgress(update Update) error {
	select {
	case w.ch <- update:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// FragmentCounter forwards streamed fragments to a Writer with a running character count
type FragmentCounter struct {
	w     Writer
	chars int
}

// NewFragmentCounter creates a counter writing to w
func NewFragmentCounter(w Writer) *FragmentCounter {
	return &FragmentCounter{w: w}
}

// Add records a fragment. Its signature matches the generator's fragment callback.
func (c *FragmentCounter) Add(fragment string) {
	c.chars += len([]rune(fragment))
	_ = c.w.WriteProgress(Update{Type: UpdateFragment, Message: fragment, Chars: c.chars})
}

// Chars returns the number of characters seen
func (c *FragmentCounter) Chars() int {
	return c.chars
}
