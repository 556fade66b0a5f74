// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command kontrun drives one of the engine's built-in demonstration
// programs to completion, seeding its initial state and environment from
// a TOML config file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	kont "code.hybscloud.com/kontvm"
)

// fileConfig is the shape of the TOML config file accepted by --config.
type fileConfig struct {
	State map[string]string `toml:"state"`
	Env   map[string]string `toml:"env"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool
	var demo string

	root := &cobra.Command{
		Use:   "kontrun",
		Short: "Run kontvm's built-in effect-handling demonstration programs",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML file seeding initial state/env")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable trace-level step logging")
	root.PersistentFlags().StringVar(&demo, "demo", "counter", "which built-in demo program to run (counter, logger, gather)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a demo program to completion with Run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(demo, configPath, debug)
		},
	}
	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "Drive a demo program one Step at a time, printing each StepEvent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stepDemo(demo, configPath, debug)
		},
	}
	root.AddCommand(runCmd, stepCmd)
	// A bare `kontrun --demo counter` with no subcommand behaves like `run`.
	root.RunE = runCmd.RunE
	return root
}

func newDemoVM(demo, configPath string, debug bool, logger zerolog.Logger) (*kont.VM, kont.Program, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, kont.Program{}, fmt.Errorf("kontrun: loading config: %w", err)
	}

	opts := []kont.VMOption{
		kont.WithInitialState(cfg.state()),
		kont.WithEnv(cfg.env()),
	}
	if debug {
		opts = append(opts, kont.WithLogger(logger))
	}
	vm := kont.NewVM(opts...)

	program, err := builtinDemo(demo)
	if err != nil {
		return nil, kont.Program{}, err
	}
	return vm, program, nil
}

func runDemo(demo, configPath string, debug bool) error {
	logger := newConsoleLogger()
	vm, program, err := newDemoVM(demo, configPath, debug, logger)
	if err != nil {
		return err
	}

	result, err := kont.Run(vm, program)
	if err != nil {
		logger.Error().Err(err).Msg("program failed")
		return err
	}
	logger.Info().Interface("result", result).Msg("program finished")
	return nil
}

// stepDemo drives the same demo programs through the low-level RunAsync/
// Step loop instead of Run, printing each StepEvent as it happens. It does
// not call ReceiveHostResult: a StepNeedsHost event ends the demo with an
// error. None of the built-in demos install a HostHandler, so
// StepNeedsHost is never actually observed here.
func stepDemo(demo, configPath string, debug bool) error {
	logger := newConsoleLogger()
	vm, program, err := newDemoVM(demo, configPath, debug, logger)
	if err != nil {
		return err
	}

	vm = kont.RunAsync(vm, program)
	for {
		switch vm.Step() {
		case kont.StepContinue:
			continue
		case kont.StepNeedsHost:
			info := vm.PendingHostCallInfo()
			logger.Warn().Interface("pending_host_call", info).Msg("step needs host, demo has no handler for it")
			return fmt.Errorf("kontrun: demo %q issued a host call with no driver installed", demo)
		case kont.StepDone:
			logger.Info().Interface("result", vm.Result()).Msg("program finished")
			return nil
		case kont.StepError:
			logger.Error().Err(vm.Err()).Msg("program failed")
			return vm.Err()
		}
	}
}

func newConsoleLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

func (c fileConfig) state() map[string]kont.Value {
	out := make(map[string]kont.Value, len(c.State))
	for k, v := range c.State {
		out[k] = kont.Str(v)
	}
	return out
}

func (c fileConfig) env() map[string]kont.Value {
	out := make(map[string]kont.Value, len(c.Env))
	for k, v := range c.Env {
		out[k] = kont.Str(v)
	}
	return out
}

// builtinDemo returns one of a small set of named reference programs,
// exercising the standard effects end to end without requiring any
// external script input.
func builtinDemo(name string) (kont.Program, error) {
	switch name {
	case "counter":
		return kont.ProgramBind(kont.PerformEffect(kont.GetEffect{Key: "count"}), func(v kont.Value) kont.Program {
			n, _ := v.(kont.Int)
			return kont.PerformEffect(kont.PutEffect{Key: "count", Val: n + 1})
		}), nil
	case "logger":
		return kont.ProgramThen(
			kont.PerformEffect(kont.TellEffect{Message: kont.Str("kontrun started")}),
			kont.PerformEffect(kont.AskEffect{Key: "greeting"}),
		), nil
	case "gather":
		return kont.ExprWithHandler(kont.SchedulerHandler(), gatherBody()), nil
	default:
		return kont.Program{}, fmt.Errorf("kontrun: unknown demo %q", name)
	}
}

// gatherBody spawns two independent counting tasks under isolated state and
// gathers both results into a single list, exercising SpawnEffect and
// GatherEffect end to end.
func gatherBody() kont.Program {
	spawnOne := func(label string, n int) kont.Program {
		return kont.PerformEffect(kont.SpawnEffect{
			Policy: kont.PolicyIsolated,
			Body: kont.ProgramThen(
				kont.PerformEffect(kont.PutEffect{Key: label, Val: kont.Int(n)}),
				kont.ProgramReturn(kont.Int(n)),
			),
		})
	}
	return kont.ProgramBind(spawnOne("worker-a", 1), func(ta kont.Value) kont.Program {
		return kont.ProgramBind(spawnOne("worker-b", 2), func(tb kont.Value) kont.Program {
			a, _ := ta.(kont.TaskValue)
			b, _ := tb.(kont.TaskValue)
			return kont.PerformEffect(kont.GatherEffect{Tasks: []*kont.SchedulerTask{a.Task, b.Task}})
		})
	})
}
