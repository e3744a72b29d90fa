package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/cihub/seelog"
	"github.com/fatih/color"
	"github.com/minor-industries/ermc/config"
	"github.com/minor-industries/ermc/database"
	"github.com/minor-industries/ermc/engine"
	"github.com/minor-industries/ermc/logging"
	"github.com/minor-industries/ermc/session"
	"github.com/minor-industries/ermc/source"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
)

func printHelp() {
	fmt.Printf("---- Commands ----\n")
	fmt.Printf("f                  = fetch voltage and current\n")
	fmt.Printf("c <length> <r>     = calculate resistivity (meters)\n")
	fmt.Printf("s                  = show series\n")
	fmt.Printf("h                  = print this help\n")
	fmt.Printf("q                  = quit\n")
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.LoadEnv(*configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	// keep the console for the prompt
	if err := logging.Setup("error"); err != nil {
		return errors.Wrap(err, "setup logging")
	}
	defer log.Flush()

	kv, err := database.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	writer := database.NewWriter(kv, storage.SeriesKey, time.Duration(cfg.Storage.FlushMs)*time.Millisecond, nil)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	sess := session.New(session.Options{
		Source: &source.Fixed{
			Voltage: cfg.Source.Voltage,
			Current: cfg.Source.Current,
		},
		Policy:    cfg.Policy(),
		Persister: writer,
	})

	if cfg.Engine.Rehydrate {
		if err := sess.Rehydrate(kv); err != nil {
			return errors.Wrap(err, "rehydrate")
		}
	}

	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q":
			return nil
		case "h":
			printHelp()
		case "f":
			m, err := sess.Fetch(ctx)
			if err != nil {
				color.Red("fetch error: %v", err)
				continue
			}
			color.HiYellow("Voltage: %g V  Current: %g A", m.Voltage, m.Current)
		case "c":
			args := append(fields[1:], "", "")
			res := sess.Calculate(args[0], args[1])
			if res.Status != session.StatusOK {
				color.Red("%s: %v", res.Status, res.Err)
				continue
			}
			color.Green("Calculated Resistivity: %.3f Ohm·m", res.Resistivity)
		case "s":
			labels, values := engine.ExportLabelsAndValues(sess.Series())
			if len(labels) == 0 {
				fmt.Printf("(empty)\n")
			}
			for i := range labels {
				fmt.Printf("%6s  %12.3f\n", labels[i], values[i])
			}
		default:
			color.Red("unknown command %q (h for help)", fields[0])
		}
	}
}

func main() {
	if err := run(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
