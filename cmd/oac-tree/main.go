// Command oac-tree is a demo runner for the procedure execution engine:
// load config, build the runtime, run it to completion, print the result.
// XML/file loading of procedures is out of scope, so the demo procedure
// itself is built in code; -config only tunes the runner/job layer
// around it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/config"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/instructions"
	"github.com/oac-tree/sequencer/job"
	"github.com/oac-tree/sequencer/observability"
	"github.com/oac-tree/sequencer/procedure"
	"github.com/oac-tree/sequencer/runner"
	"github.com/oac-tree/sequencer/variable"
)

// consoleUI implements instruction.UI by printing to stdout/stderr; it
// answers every user-input request with ok=false since the demo never
// includes an Input/Choice instruction.
type consoleUI struct{}

func (consoleUI) UpdateInstructionStatus(instr instruction.Instruction, status instruction.Status) {
	fmt.Printf("  %s -> %s\n", instr.TypeName(), status)
}

func (consoleUI) VariableUpdated(name string, value anyvalue.Value, connected bool) {
	fmt.Printf("  variable %s = %v (connected=%v)\n", name, value.AsInterface(), connected)
}

func (consoleUI) PutValue(value anyvalue.Value, description string) {
	fmt.Printf("  output: %s = %v\n", description, value.AsInterface())
}

func (consoleUI) Message(text string) { fmt.Println("  " + text) }

func (consoleUI) Log(severity instruction.Severity, text string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", severity, text)
}

func (consoleUI) RequestUserValue(template anyvalue.Value, description string) (anyvalue.Value, bool) {
	return anyvalue.Value{}, false
}

func (consoleUI) RequestUserChoice(options []string, metadata anyvalue.Value) (int, bool) {
	return 0, false
}

func main() {
	var (
		configFile = flag.String("config", "", "Path to a JobConfig JSON/YAML file (optional; defaults apply otherwise)")
		count      = flag.Int("count", 3, "Number of times the demo procedure's counter is incremented")
	)
	flag.Parse()

	cfg := config.DefaultJobConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	obs, err := observability.GetObserver(cfg.Runner.Observer)
	if err != nil {
		log.Fatalf("Unknown observer %q: %v", cfg.Runner.Observer, err)
	}

	proc := buildDemoProcedure(*count)
	if err := proc.Setup(); err != nil {
		log.Fatalf("Procedure setup failed: %v", err)
	}
	proc.SetObserver(obs)

	ui := consoleUI{}
	r := runner.New(proc, ui, runner.WithYieldWhenIdle(cfg.Runner.YieldWhenIdle()))

	done := make(chan job.State, 1)
	c := job.New(r, ui, func(s job.State) {
		fmt.Printf("job state -> %s\n", s)
		if s.IsTerminal() {
			select {
			case done <- s:
			default:
			}
		}
	}, job.WithName(cfg.Name), job.WithObservability(obs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.Start(); err != nil {
		log.Fatalf("Start failed: %v", err)
	}

	select {
	case final := <-done:
		fmt.Printf("Finished: %s\n", final)
	case <-ctx.Done():
		_ = c.Halt()
		<-done
		fmt.Println("Interrupted")
	case <-time.After(10 * time.Second):
		_ = c.Halt()
		fmt.Println("Timed out waiting for the demo procedure to finish")
	}

	if v, err := proc.GetVariableValue("counter"); err == nil {
		fmt.Printf("counter = %v\n", v.AsInterface())
	}
}

// buildDemoProcedure constructs Sequence[Message, Increment x count] over
// a single "counter" Local variable, rooted via the isRoot attribute.
func buildDemoProcedure(count int) *procedure.Procedure {
	p := procedure.New("demo")

	counter := variable.NewLocal()
	counter.Attributes().AddAttribute("type", "float64")
	counter.Attributes().AddAttribute("value", "0")
	_ = p.AddVariable("counter", counter)

	greeting := instructions.NewMessage()
	greeting.Attributes().AddAttribute("text", "starting demo procedure")

	seqChildren := make([]instruction.Instruction, 0, count+1)
	seqChildren = append(seqChildren, greeting)
	for i := 0; i < count; i++ {
		inc := instructions.NewIncrement()
		inc.Attributes().AddAttribute("varName", "counter")
		seqChildren = append(seqChildren, inc)
	}

	root := instructions.NewSequence(seqChildren...)
	root.Attributes().AddAttribute("isRoot", "True")
	p.PushInstruction(root)
	return p
}
