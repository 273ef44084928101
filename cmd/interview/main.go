// interview: candidate-side interview client. Acquires the microphone
// and camera, runs the push-to-talk turn loop against the backend, and
// serves a local dashboard with live captions and connection quality.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/voxhire/go-voxhire/internal/config"
	"github.com/voxhire/go-voxhire/internal/log"
	"github.com/voxhire/go-voxhire/pkg/backend"
	"github.com/voxhire/go-voxhire/pkg/caption"
	"github.com/voxhire/go-voxhire/pkg/device"
	"github.com/voxhire/go-voxhire/pkg/encode"
	"github.com/voxhire/go-voxhire/pkg/latency"
	"github.com/voxhire/go-voxhire/pkg/orchestrator"
	"github.com/voxhire/go-voxhire/pkg/playback"
	"github.com/voxhire/go-voxhire/pkg/turn"
	"github.com/voxhire/go-voxhire/pkg/upload"
	"github.com/voxhire/go-voxhire/pkg/web"
)

var (
	consent   = flag.Bool("consent", false, "Consent to video recording")
	dashboard = flag.Bool("dashboard", true, "Serve the local dashboard")
	noPlay    = flag.Bool("no-playback", false, "Skip AI audio playback (captions only)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	log.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprintln(os.Stderr, "Usage: VOXHIRE_INTERVIEW_ID=<uuid> interview [flags]")
		os.Exit(1)
	}

	micCfg := device.DefaultMicConfig()
	recorder, err := encode.NewRecorder(micCfg.SampleRate, micCfg.Channels, encode.DefaultChunkBytes)
	if err != nil {
		log.Error("recorder init failed", "error", err)
		os.Exit(1)
	}

	var player *playback.Player
	if !*noPlay {
		player = playback.NewPlayer(micCfg.SampleRate, micCfg.Channels)
	}

	machine := turn.NewMachine()
	captions := caption.NewQueue(0)
	monitor := latency.NewMonitor()
	devices := device.NewManager()

	var srv *web.Server
	deps := orchestrator.Deps{
		Backend:  backend.NewClient(cfg.BackendURL, cfg.AuthToken),
		Devices:  devices,
		Recorder: recorder,
		Player:   player,
		Machine:  machine,
		Captions: captions,
		Monitor:  monitor,
	}
	if *dashboard {
		srv = web.NewServer(cfg.DashboardPort, machine, captions, monitor, devices)
		deps.Events = srv.Events()
	}

	sess, err := orchestrator.NewSession(orchestrator.Config{
		InterviewID: cfg.InterviewID,
		Consent:     *consent,
		Pipeline:    upload.DefaultConfig(),
	}, deps)
	if err != nil {
		log.Error("session init failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if srv != nil {
		srv.StartAsync()
		defer srv.Shutdown()
	}

	if err := sess.Start(ctx); err != nil {
		var perm *device.PermissionError
		if errors.As(err, &perm) {
			fmt.Fprintln(os.Stderr, perm.Message())
		} else {
			log.Error("session start failed", "error", err)
		}
		os.Exit(1)
	}
	defer sess.End()

	fmt.Println("Interview started. Press Enter to talk, Enter again to send, q to finish.")
	runPushToTalk(ctx, sess)
}

// runPushToTalk reads the terminal: blank lines toggle the candidate's
// turn, "q" ends the interview. EOF and signals also end it.
func runPushToTalk(ctx context.Context, sess *orchestrator.Session) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	recording := false
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || line == "q" {
				return
			}
			if recording {
				if err := sess.EndTurn(); err != nil {
					log.Warn("end turn rejected", "error", err)
					continue
				}
				recording = false
				fmt.Println("Sent. Waiting for the next question...")
				continue
			}
			if err := sess.BeginTurn(); err != nil {
				log.Warn("begin turn rejected", "error", err)
				continue
			}
			recording = true
			fmt.Println("Recording. Press Enter when you are done.")
		}
	}
}
