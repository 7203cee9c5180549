package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/relnet/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stageActivity names the work that follows a finished compile stage.
var stageActivity = map[string]string{
	"classifying":   "building graph",
	"building":      "post-processing",
	"postprocessed": "finishing",
}

// buildSpinner animates while a document compiles and renders. Registered
// as pipeline hooks, it names the stage the build is in.
type buildSpinner struct {
	observability.NoopPipelineHooks

	w       io.Writer
	input   string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	message string
	drawn   int // widest line written, in runes
}

// newBuildSpinner creates a spinner for input that stops when ctx is cancelled.
func newBuildSpinner(ctx context.Context, w io.Writer, input string) *buildSpinner {
	ctx, cancel := context.WithCancel(ctx)
	return &buildSpinner{
		w:       w,
		input:   input,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: "Compiling " + input + "...",
	}
}

// Start begins the animation.
func (s *buildSpinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *buildSpinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.drawn > 0 {
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.drawn))
		}
	})
}

// Message returns the text shown next to the spinner.
func (s *buildSpinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *buildSpinner) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

func (s *buildSpinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := frame + " " + s.message
	pad := s.drawn - len([]rune(line))
	s.drawn = max(s.drawn, len([]rune(line)))
	fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(frame), StyleDim.Render(s.message), strings.Repeat(" ", max(pad, 0)))
}

// OnStage reports the stage that starts after the finished one.
func (s *buildSpinner) OnStage(_ context.Context, _, stage string, _ time.Duration) {
	if next, ok := stageActivity[stage]; ok {
		s.setMessage(fmt.Sprintf("Compiling %s: %s...", s.input, next))
	}
}

// OnRenderStart reports the output format being rendered.
func (s *buildSpinner) OnRenderStart(_ context.Context, format string) {
	s.setMessage(fmt.Sprintf("Rendering %s as %s...", s.input, format))
}

var _ observability.PipelineHooks = (*buildSpinner)(nil)
