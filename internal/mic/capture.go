package mic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const frameDuration = 20 * time.Millisecond

// Source yields encoded audio samples for the local track. Read blocks until
// the next frame is due, io.EOF ends the stream.
type Source interface {
	Label() string
	Read() (media.Sample, error)
	Close() error
}

// SourceInfo describes one capture source without opening it.
type SourceInfo struct {
	ID    string
	Label string
}

// Sources enumerates the capture sources this build knows about. Purely
// informational; an empty result does not block publishing.
func Sources(oggPath string) []SourceInfo {
	out := []SourceInfo{
		{ID: "silence", Label: "silence (opus DTX frames)"},
	}
	if oggPath != "" {
		if _, err := os.Stat(oggPath); err == nil {
			out = append(out, SourceInfo{ID: "ogg", Label: "ogg file: " + oggPath})
		}
	}
	return out
}

// OpenSource opens a capture source by id. An empty id means silence.
func OpenSource(id, oggPath string) (Source, error) {
	switch id {
	case "", "silence":
		return newSilenceSource(), nil
	case "ogg":
		return newOggSource(oggPath)
	default:
		return nil, fmt.Errorf("unknown capture source %q", id)
	}
}

// silenceSource emits the 3-byte opus DTX frame every 20ms, which keeps the
// publication alive without real capture hardware.
type silenceSource struct {
	ticker *time.Ticker
	done   chan struct{}
}

var opusSilenceFrame = []byte{0xf8, 0xff, 0xfe}

func newSilenceSource() *silenceSource {
	return &silenceSource{
		ticker: time.NewTicker(frameDuration),
		done:   make(chan struct{}),
	}
}

func (s *silenceSource) Label() string { return "silence" }

func (s *silenceSource) Read() (media.Sample, error) {
	select {
	case <-s.done:
		return media.Sample{}, io.EOF
	case <-s.ticker.C:
		return media.Sample{Data: opusSilenceFrame, Duration: frameDuration}, nil
	}
}

func (s *silenceSource) Close() error {
	s.ticker.Stop()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// oggSource replays opus pages from an ogg file, paced at one frame per 20ms.
type oggSource struct {
	file   *os.File
	reader *oggreader.OggReader
	ticker *time.Ticker
	label  string
}

func newOggSource(path string) (*oggSource, error) {
	if path == "" {
		return nil, errors.New("ogg source needs a file path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ogg source: %w", err)
	}
	r, _, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parse ogg source: %w", err)
	}
	return &oggSource{
		file:   f,
		reader: r,
		ticker: time.NewTicker(frameDuration),
		label:  "ogg:" + path,
	}, nil
}

func (s *oggSource) Label() string { return s.label }

func (s *oggSource) Read() (media.Sample, error) {
	<-s.ticker.C
	page, _, err := s.reader.ParseNextPage()
	if err != nil {
		return media.Sample{}, err
	}
	return media.Sample{Data: page, Duration: frameDuration}, nil
}

func (s *oggSource) Close() error {
	s.ticker.Stop()
	return s.file.Close()
}
