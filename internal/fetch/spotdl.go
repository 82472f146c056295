package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/model"
)

const terminateGrace = 5 * time.Second

// SpotDLOptions configure the spotdl invocation for one destination.
type SpotDLOptions struct {
	Dest         string
	Format       string
	Bitrate      string
	ClientID     string
	ClientSecret string
	UserAuth     bool
}

// SpotDL runs the external spotdl tool for single-track downloads. One
// instance is scoped to one output directory; concurrent Run calls for
// distinct tracks are safe because spotdl only touches files for its own
// track.
type SpotDL struct {
	opts SpotDLOptions
	log  *zap.Logger
}

// NewSpotDL creates a runner writing into opts.Dest, creating it if needed.
func NewSpotDL(opts SpotDLOptions, log *zap.Logger) (*SpotDL, error) {
	if strings.TrimSpace(opts.Dest) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", opts.Dest, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SpotDL{opts: opts, log: log}, nil
}

func (s *SpotDL) args(track model.Track) []string {
	args := []string{
		"download", track.URL,
		"--output", s.opts.Dest,
		"--overwrite", "skip",
		"--threads", "1",
		"--archive", filepath.Join(s.opts.Dest, ".sopti-archive.txt"),
	}
	if s.opts.Format != "" {
		args = append(args, "--format", s.opts.Format)
	}
	if s.opts.Bitrate != "" {
		args = append(args, "--bitrate", s.opts.Bitrate)
	}
	if s.opts.ClientID != "" {
		args = append(args, "--client-id", s.opts.ClientID)
	}
	if s.opts.ClientSecret != "" {
		args = append(args, "--client-secret", s.opts.ClientSecret)
	}
	if s.opts.UserAuth {
		args = append(args, "--user-auth")
	}
	return args
}

// Run performs one spotdl download attempt. Cancellation terminates the
// subprocess with SIGTERM and escalates to SIGKILL after a bounded grace
// period.
func (s *SpotDL) Run(ctx context.Context, track model.Track) error {
	cmd := exec.CommandContext(ctx, "spotdl", s.args(track)...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminateGrace

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start spotdl: %w", err)
	}

	var outBuf, errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(r io.Reader, buf *strings.Builder) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			mu.Lock()
			appendLimited(buf, scanner.Text())
			mu.Unlock()
		}
	}

	wg.Add(2)
	go read(stdoutPipe, &outBuf)
	go read(stderrPipe, &errBuf)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		mu.Lock()
		defer mu.Unlock()
		s.log.Warn("spotdl failed",
			zap.String("url", track.URL),
			zap.String("stdout", strings.TrimSpace(outBuf.String())),
			zap.String("stderr", strings.TrimSpace(errBuf.String())),
			zap.Error(err),
		)
		return fmt.Errorf("spotdl failed for %s: %w", track.URL, err)
	}
	return nil
}

// Cleanup removes partially written .part files anywhere under the
// destination. Best-effort: errors are ignored, a concurrent writer keeps
// its file.
func (s *SpotDL) Cleanup() {
	_ = filepath.WalkDir(s.opts.Dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".part") {
			_ = os.Remove(path)
		}
		return nil
	})
}

// appendLimited keeps only the head of the subprocess output for diagnostics.
func appendLimited(buf *strings.Builder, line string) {
	const maxKeep = 8192
	if buf.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - buf.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	buf.WriteString(toWrite)
}

// CheckDependencies verifies the external tools this system shells out to
// are installed.
func CheckDependencies() error {
	missing := []string{}
	if _, err := exec.LookPath("spotdl"); err != nil {
		missing = append(missing, "spotdl")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		missing = append(missing, "ffmpeg")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s. Install them and try again", strings.Join(missing, ", "))
	}
	return nil
}
