// Command motioncue runs the hybrid gesture recognition engine: it ingests
// wearable sensor samples over UDP (and optionally MQTT), runs the reflex and
// classifier detection layers, and emits arbitrated control actions.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wearsense/motioncue/internal/config"
	"github.com/wearsense/motioncue/internal/gesture"
	"github.com/wearsense/motioncue/internal/gesture/actiondb"
	"github.com/wearsense/motioncue/internal/gesture/mqtt"
	"github.com/wearsense/motioncue/internal/gesture/network"
	"github.com/wearsense/motioncue/internal/timeutil"
	"github.com/wearsense/motioncue/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file (defaults apply when empty)")
	listenAddr = flag.String("listen", "", "Override UDP listen address")
)

func main() {
	flag.Parse()

	log.Printf("motioncue %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// Model load happens before ingestion starts. A load failure is fatal
	// only when ML is required; otherwise the engine degrades to
	// reflex-only.
	var classifier *gesture.GestureClassifier
	if cfg.GetMLEnabled() {
		var err error
		classifier, err = gesture.LoadModel(cfg.GetModelPath(), gesture.FeatureNames())
		if err != nil {
			if cfg.GetMLRequired() {
				log.Fatalf("model load failed and ml_required is set: %v", err)
			}
			log.Printf("model load failed, continuing reflex-only: %v", err)
		} else {
			log.Printf("loaded classifier %s (labels: %v)", classifier.Version(), classifier.Labels())
		}
	} else {
		log.Print("ML disabled by config, running reflex-only")
	}

	sink := gesture.NewChannelSink(256)
	engine := gesture.NewEngine(gesture.EngineConfig{
		Window:             cfg.GetWindowDuration(),
		PredictionInterval: cfg.GetPredictionInterval(),
		MinSamples:         cfg.GetMinSamples(),
		GravityOffset:      cfg.GetGravityOffset(),
		Reflex: gesture.ReflexConfig{
			JumpThreshold:      cfg.GetJumpThreshold(),
			AttackThreshold:    cfg.GetAttackThreshold(),
			StabilityThreshold: cfg.GetStabilityThreshold(),
		},
		Arbitration: gesture.ArbitratorConfig{
			Cooldown:            cfg.GetCooldown(),
			ConfidenceThreshold: cfg.GetConfidenceThreshold(),
			LabelActions:        labelActions(cfg.GetEnabledLabels()),
		},
		Classifier: classifier,
	}, timeutil.RealClock{}, sink)

	var db *actiondb.ActionDB
	var recorder *actiondb.Recorder
	if path := cfg.GetDBPath(); path != "" {
		var err error
		db, err = actiondb.New(path)
		if err != nil {
			log.Fatalf("failed to open action db: %v", err)
		}
		defer db.Close()

		if cfg.GetRecordingEnabled() {
			sessionID, err := db.StartSession("")
			if err != nil {
				log.Fatalf("failed to start recording session: %v", err)
			}
			recorder = actiondb.NewRecorder(db, engine, sessionID)
			defer func() {
				if err := db.EndSession(sessionID); err != nil {
					log.Printf("failed to end session: %v", err)
				}
			}()
			log.Printf("recording session %s started", sessionID)
		}
	}

	addr := cfg.GetUDPAddress()
	if *listenAddr != "" {
		addr = *listenAddr
	}
	listener := network.NewUDPListener(network.ListenerConfig{
		Address:     addr,
		LogInterval: cfg.GetLogInterval(),
		Labels:      labelHandler(recorder),
	}, engine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sensor listener exited: %v", err)
			stop()
		}
	}()

	if broker := cfg.GetMQTTBroker(); broker != "" {
		source := mqtt.NewSource(mqtt.SourceConfig{
			Broker:   broker,
			Topic:    cfg.GetMQTTTopic(),
			ClientID: cfg.GetMQTTClientID(),
		}, engine)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := source.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("MQTT source exited: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("classification loop exited: %v", err)
		}
	}()

	// Drain the action stream: log each dispatch and persist when a db is
	// configured. The external key-press layer consumes the same stream.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case act := <-sink.C:
				log.Printf("action: %s (source=%s at=%s)", act.Action, act.Source, act.Timestamp.Format("15:04:05.000"))
				if db != nil {
					if err := db.RecordAction(engine.RunID(), act); err != nil {
						log.Printf("failed to record action: %v", err)
					}
				}
			}
		}
	}()

	<-ctx.Done()
	listener.Close()
	wg.Wait()

	engine.Stats().LogStats()
}

// labelActions filters the default label mapping down to the enabled labels;
// nil keeps everything.
func labelActions(enabled []string) map[string]gesture.Action {
	all := gesture.DefaultLabelActions()
	if enabled == nil {
		return all
	}
	out := make(map[string]gesture.Action, len(enabled))
	for _, label := range enabled {
		if action, ok := all[label]; ok {
			out[label] = action
		}
	}
	return out
}

// labelHandler avoids handing the listener a typed-nil interface when
// recording is disabled.
func labelHandler(r *actiondb.Recorder) network.LabelHandler {
	if r == nil {
		return nil
	}
	return r
}
