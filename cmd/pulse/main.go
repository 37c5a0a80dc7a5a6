package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pulsehtml/pulse/directive"
	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/expr"
	"github.com/pulsehtml/pulse/live"
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/sched"
)

func main() {
	input := flag.String("input", "", "HTML document to process")
	data := flag.String("data", "", "JSON file with the data model")
	serve := flag.String("serve", "", "Address to serve the live document at instead of printing")
	ticks := flag.Int("ticks", 1, "Update loop ticks to run before printing")
	interval := flag.Duration("interval", 50*time.Millisecond, "Tick interval when serving")
	debug := flag.Bool("debug", false, "Whether to log engine diagnostics")
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			panic(err)
		}
	}

	src, err := os.ReadFile(*input)
	if err != nil {
		panic(err)
	}
	doc, err := dom.ParseString(string(src), logger)
	if err != nil {
		panic(err)
	}

	model := map[string]interface{}{}
	if *data != "" {
		raw, err := os.ReadFile(*data)
		if err != nil {
			panic(err)
		}
		if err := decodeModel(raw, &model); err != nil {
			panic(err)
		}
	}

	store := reactive.NewStore(logger)
	compiler := expr.NewCompiler(store, logger)
	compiler.Globals["log"] = func(params ...interface{}) (interface{}, error) {
		fmt.Fprintln(os.Stderr, params...)
		return nil, nil
	}
	loop := sched.NewLoop(logger)
	proc := directive.New(doc, store, compiler, loop, sched.RealClock(), logger)
	if err := proc.Root(model); err != nil {
		panic(err)
	}

	if *serve != "" {
		server := live.NewServer(doc, model, loop, logger)
		go loop.Run(context.Background(), *interval)
		fmt.Fprintf(os.Stderr, "serving at http://%s\n", *serve)
		if err := http.ListenAndServe(*serve, server.Handler()); err != nil {
			panic(err)
		}
		return
	}

	for i := 0; i < *ticks; i++ {
		loop.Tick()
	}
	rendered, err := doc.Render()
	if err != nil {
		panic(err)
	}
	fmt.Println(rendered)
}
