// Command jbw-server runs a standalone JBW simulation server: the wire
// protocol listener on one TCP port and the admin/spectator HTTP surface on
// another.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jellybeanworld/logging"
	loggingsinks "jellybeanworld/logging/sinks"
	"jellybeanworld/netserver"
	"jellybeanworld/world"
)

func main() {
	listenAddr := flag.String("listen", ":54321", "TCP address for the wire protocol listener")
	adminAddr := flag.String("admin", ":8080", "HTTP address for /healthz, /diagnostics, /metrics, /spectate")
	seed := flag.String("seed", world.DefaultSeed, "deterministic world seed")
	jsonLog := flag.String("json-log", "", "path to append newline-delimited JSON log events (empty disables)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	logCfg := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingsinks.NewConsoleSink(os.Stdout, logging.ConsoleConfig{}),
	}
	if *jsonLog != "" {
		logCfg.EnabledSinks = append(logCfg.EnabledSinks, "json")
		logCfg.JSON.FilePath = *jsonLog
		logCfg.JSON.MaxBatch = 32
		logCfg.JSON.FlushInterval = time.Second
		jsonSink, err := loggingsinks.NewJSONSink(logCfg.JSON)
		if err != nil {
			log.Fatalf("failed to open json log sink: %v", err)
		}
		sinks["json"] = jsonSink
	}

	router, err := logging.NewRouter(logCfg, logging.SystemClock{}, logger, sinks)
	if err != nil {
		log.Fatalf("failed to construct logging router: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	w, err := world.New(demoConfig(*seed))
	if err != nil {
		log.Fatalf("failed to construct world: %v", err)
	}

	srv := netserver.New(netserver.Config{ListenAddr: *listenAddr}, w, router, router)

	go func() {
		mux := srv.AdminRouter()
		logger.Printf("admin http listening on %s", *adminAddr)
		if err := http.ListenAndServe(*adminAddr, mux); err != nil {
			logger.Printf("admin http server exited: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Printf("shutting down")
		cancel()
	}()

	logger.Printf("jbw-server listening on %s (seed=%q)", *listenAddr, *seed)
	if err := srv.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

// demoConfig builds a small two-item-type world (a collectible "jellybean"
// and a movement-blocking "wall") sufficient to exercise every wire
// operation without external configuration input.
func demoConfig(seed string) world.Config {
	return world.Config{
		Seed:            seed,
		PatchSize:       32,
		VisionRange:     5,
		ScentDimensions: 3,
		ColorDimensions: 3,
		ItemTypeCount:   2,
		MCMCIterations:  10,
		ScentDecay:      0.5,
		ScentDiffusion:  0.12,
		ItemTypes: []world.ItemType{
			{
				Name:           "jellybean",
				ScentVec:       []float32{1, 0, 0},
				ColorVec:       []float32{0.9, 0.2, 0.2},
				RequiredCounts: []int32{0, 0},
				RequiredCosts:  []int32{0, 0},
				BlocksMovement: false,
				Intensity:      world.IntensityFn{ID: "radial-bump", Args: []float32{1.5, 0.02}},
				Interactions: []world.InteractionFn{
					{ID: "attractive", TargetItem: 0, Args: []float32{0.3}},
				},
			},
			{
				Name:           "wall",
				ScentVec:       []float32{0, 0, 1},
				ColorVec:       []float32{0.3, 0.3, 0.3},
				RequiredCounts: []int32{0, 0},
				RequiredCosts:  []int32{0, 0},
				BlocksMovement: true,
				Intensity:      world.IntensityFn{ID: "const", Args: []float32{-5}},
				Interactions: []world.InteractionFn{
					{ID: "repulsive", TargetItem: 1, Args: []float32{1}},
				},
			},
		},
	}
}
