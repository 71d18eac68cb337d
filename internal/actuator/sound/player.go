// Package sound plays the alarm sound through the host audio device.
package sound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/oshokin/med-alarm/internal/logger"
)

// pollInterval is how often the loop checks whether a pass has finished.
const pollInterval = 10 * time.Millisecond

var errFormatMismatch = errors.New("sound format differs from the initialized audio device")

// Player loops WAV files with oto. A process has a single audio context,
// created with the format of the first file played.
type Player struct {
	//nolint:containedctx // The context only carries the logger.
	ctx context.Context
	// mu guards the fields below.
	mu sync.Mutex
	// audio is the shared oto context.
	audio *oto.Context
	// audioFormat is the format audio was created with.
	audioFormat *format
	// stop ends the running loop; nil when silent.
	stop chan struct{}
	// done is closed when the running loop has exited.
	done chan struct{}
}

// NewPlayer returns a silent player logging through ctx.
func NewPlayer(ctx context.Context) *Player {
	return &Player{ctx: logger.WithName(ctx, "sound")}
}

// PlayLoop reads the WAV file at resource and plays it until Stop.
// A sound already playing is replaced.
func (p *Player) PlayLoop(resource string, volume float64) error {
	data, err := os.ReadFile(resource)
	if err != nil {
		return fmt.Errorf("read sound file: %w", err)
	}

	wavFormat, samples, err := parseWAV(data)
	if err != nil {
		return err
	}

	if err = p.Stop(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.initAudio(wavFormat); err != nil {
		return err
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop(scaleVolume(samples, volume), p.stop, p.done)

	logger.InfoKV(p.ctx, "Alarm sound started", "file", resource, "volume", volume)

	return nil
}

// Stop halts the loop and waits for the audio player to close.
func (p *Player) Stop() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return nil
	}

	close(stop)
	<-done

	logger.Info(p.ctx, "Alarm sound stopped")

	return nil
}

func (p *Player) initAudio(wavFormat *format) error {
	if p.audio != nil {
		if *p.audioFormat != *wavFormat {
			return errFormatMismatch
		}

		return nil
	}

	audio, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   wavFormat.SampleRate,
		ChannelCount: wavFormat.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("initialize audio device: %w", err)
	}

	<-ready

	p.audio = audio
	p.audioFormat = wavFormat

	return nil
}

func (p *Player) loop(samples []byte, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		player := p.audio.NewPlayer(bytes.NewReader(samples))
		player.Play()

		for player.IsPlaying() {
			select {
			case <-stop:
				player.Pause()
				p.closePlayer(player)

				return
			case <-ticker.C:
			}
		}

		p.closePlayer(player)

		select {
		case <-stop:
			return
		default:
		}
	}
}

func (p *Player) closePlayer(player *oto.Player) {
	if err := player.Close(); err != nil {
		logger.Errorf(p.ctx, "Failed to close audio player: %v", err)
	}
}
