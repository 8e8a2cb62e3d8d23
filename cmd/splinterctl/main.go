// splinterctl is a debug REPL for inspecting and poking at splinter
// region files.
//
// Usage:
//
//	splinterctl <region-file>              Open an existing region
//	splinterctl new [opts] <region-file>   Create a new region
//
// Options for 'new':
//
//	-s, --slots         Slot count (default: prompts)
//	-m, --max-val-sz     Per-slot value capacity in bytes (default: prompts)
//
// Commands (in REPL):
//
//	set <key> <value>              Store a value
//	get <key>                      Retrieve a value
//	unset <key>                    Remove a key
//	list [limit]                   List live keys
//	poll <key> <timeout-ms>        Wait for a key to change
//	intop <key> <op> <mask>        Apply AND/OR/XOR/NOT/INC/DEC to a BIGUINT slot
//	type <key> <flags>             Set named-type flags (hex)
//	header                         Show header snapshot
//	slot <key>                     Show slot snapshot
//	scrub <none|hybrid|full>       Set scrub policy
//	purge                          Run maintenance scrub pass
//	help                           Show this help
//	exit / quit / q                Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/timpost/splinter/pkg/splinter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()

		return errors.New("missing command or region file path")
	}

	if os.Args[1] == "new" {
		return runNew(os.Args[2:])
	}

	return runOpen(os.Args[1:])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  splinterctl <region-file>              Open an existing region\n")
	fmt.Fprintf(os.Stderr, "  splinterctl new [opts] <region-file>   Create a new region\n")
	fmt.Fprintf(os.Stderr, "\nRun 'splinterctl new --help' for options when creating a new region.\n")
}

func runNew(args []string) error {
	cfg, err := loadRCConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fs := pflag.NewFlagSet("new", pflag.ExitOnError)

	slots := fs.Uint32P("slots", "s", 0, "slot count")
	maxValSz := fs.Uint32P("max-val-sz", "m", 0, "per-slot value capacity in bytes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: splinterctl new [options] <region-file>\n\n")
		fmt.Fprintf(os.Stderr, "Create a new splinter region. If options are not provided, you will be prompted.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return errors.New("missing region file path")
	}

	path := fs.Arg(0)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("region file already exists: %s (use 'splinterctl %s' to open it)", path, path)
	}

	if *slots == 0 {
		*slots = uint32(promptInt("Slot count", int(cfg.DefaultSlots)))
	}

	if *maxValSz == 0 {
		*maxValSz = uint32(promptInt("Max value size (bytes)", int(cfg.DefaultMaxValSz)))
	}

	fmt.Printf("\nCreating region with:\n")
	fmt.Printf("  Path:        %s\n", path)
	fmt.Printf("  Slots:       %d\n", *slots)
	fmt.Printf("  Max val sz:  %d bytes\n", *maxValSz)
	fmt.Println()

	region, err := splinter.Create(path, *slots, *maxValSz)
	if err != nil {
		return fmt.Errorf("creating region: %w", err)
	}
	defer region.Close()

	repl := &repl{region: region}

	return repl.run()
}

func runOpen(args []string) error {
	fs := pflag.NewFlagSet("open", pflag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: splinterctl <region-file>\n\n")
		fmt.Fprintf(os.Stderr, "Open an existing splinter region.\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return errors.New("missing region file path")
	}

	path := fs.Arg(0)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("region file does not exist: %s (use 'splinterctl new %s' to create it)", path, path)
	}

	region, err := splinter.Open(path)
	if err != nil {
		return fmt.Errorf("opening region: %w", err)
	}
	defer region.Close()

	repl := &repl{region: region}

	return repl.run()
}

// promptInt prompts on stdin for an integer, falling back to a default on
// blank input.
func promptInt(prompt string, defaultVal int) int {
	for {
		fmt.Printf("%s [%d]: ", prompt, defaultVal)

		var line string

		if _, err := fmt.Scanln(&line); err != nil {
			return defaultVal
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal
		}

		val, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("Please enter a valid integer.")

			continue
		}

		return val
	}
}

// repl is the interactive command loop over an open region.
type repl struct {
	region *splinter.Region
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".splinterctl_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("splinterctl - splinter region CLI")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("splinter> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "set", "put":
			r.cmdSet(args)

		case "get":
			r.cmdGet(args)

		case "unset", "del", "delete":
			r.cmdUnset(args)

		case "list", "ls", "scan":
			r.cmdList(args)

		case "poll":
			r.cmdPoll(args)

		case "intop":
			r.cmdIntOp(args)

		case "type":
			r.cmdType(args)

		case "header", "info":
			r.cmdHeader()

		case "slot":
			r.cmdSlot(args)

		case "scrub":
			r.cmdScrub(args)

		case "purge":
			r.cmdPurge()

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) completer(line string) []string {
	commands := []string{
		"set", "put", "get", "unset", "del", "delete",
		"list", "ls", "scan", "poll", "intop", "type",
		"header", "info", "slot", "scrub", "purge",
		"clear", "cls", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  set <key> <value>              Store a value")
	fmt.Println("  get <key>                      Retrieve a value")
	fmt.Println("  unset <key>                    Remove a key")
	fmt.Println("  list [limit]                   List live keys")
	fmt.Println("  poll <key> <timeout-ms>        Wait for a key to change")
	fmt.Println("  intop <key> <op> <mask>        AND/OR/XOR/NOT/INC/DEC on a BIGUINT slot")
	fmt.Println("  type <key> <flags>             Set named-type flags (hex)")
	fmt.Println("  header                         Show header snapshot")
	fmt.Println("  slot <key>                     Show slot snapshot")
	fmt.Println("  scrub <none|hybrid|full>       Set scrub policy")
	fmt.Println("  purge                          Run maintenance scrub pass")
	fmt.Println("  help                           Show this help")
	fmt.Println("  exit / quit / q                Exit")
}

func (r *repl) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")

		return
	}

	val := decodeValueArg(args[1])

	if err := r.region.Set(args[0], val); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: set %s (%d bytes)\n", args[0], len(val))
}

func (r *repl) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	buf := make([]byte, 1<<20)

	out, n, err := r.region.Get(args[0], buf)
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("Value (%d bytes): %s\n", n, formatValue(out))
}

func (r *repl) cmdUnset(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: unset <key>")

		return
	}

	n, err := r.region.Unset(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: unset %s (was %d bytes)\n", args[0], n)
}

func (r *repl) cmdList(args []string) {
	limit := 20

	if len(args) >= 1 {
		var err error

		limit, err = strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error parsing limit: %v\n", err)

			return
		}
	}

	entries, err := r.region.List()
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if len(entries) == 0 {
		fmt.Println("(empty)")

		return
	}

	for i, e := range entries {
		if i >= limit {
			fmt.Printf("... (showing first %d, use 'list <limit>' for more)\n", limit)

			break
		}

		fmt.Printf("%3d. %s  len=%d\n", i+1, e.Key, e.ValLen)
	}
}

func (r *repl) cmdPoll(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: poll <key> <timeout-ms>")

		return
	}

	ms, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Error parsing timeout: %v\n", err)

		return
	}

	err = r.region.Poll(args[0], time.Duration(ms)*time.Millisecond)
	if err != nil {
		fmt.Printf("Result: %v\n", err)

		return
	}

	fmt.Println("Result: changed")
}

func (r *repl) cmdIntOp(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: intop <key> <and|or|xor|not|inc|dec> <mask>")

		return
	}

	var op splinter.IntOp

	switch strings.ToLower(args[1]) {
	case "and":
		op = splinter.IntOpAnd
	case "or":
		op = splinter.IntOpOr
	case "xor":
		op = splinter.IntOpXor
	case "not":
		op = splinter.IntOpNot
	case "inc":
		op = splinter.IntOpInc
	case "dec":
		op = splinter.IntOpDec
	default:
		fmt.Printf("Unknown op: %s\n", args[1])

		return
	}

	mask, err := strconv.ParseUint(args[2], 0, 64)
	if err != nil {
		fmt.Printf("Error parsing mask: %v\n", err)

		return
	}

	if err := r.region.IntegerOp(args[0], op, mask); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *repl) cmdType(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: type <key> <flags-hex>")

		return
	}

	mask, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 32)
	if err != nil {
		fmt.Printf("Error parsing flags: %v\n", err)

		return
	}

	if err := r.region.SetNamedType(args[0], uint32(mask)); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *repl) cmdHeader() {
	snap, err := r.region.GetHeaderSnapshot()
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("Slots:              %d\n", snap.Slots)
	fmt.Printf("Max val sz:         %d\n", snap.MaxValSz)
	fmt.Printf("Val sz:             %d\n", snap.ValSz)
	fmt.Printf("Epoch:              %d\n", snap.Epoch)
	fmt.Printf("Val brk:            %d\n", snap.ValBrk)
	fmt.Printf("Parse failures:     %d\n", snap.ParseFailures)
	fmt.Printf("Last failure epoch: %d\n", snap.LastFailureEpoch)
	fmt.Printf("Core flags:         0x%08x\n", snap.CoreFlags)
	fmt.Printf("User flags:         0x%08x\n", snap.UserFlags)
}

func (r *repl) cmdSlot(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: slot <key>")

		return
	}

	snap, err := r.region.GetSlotSnapshot(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("Hash:         0x%016x\n", snap.Hash)
	fmt.Printf("Val len:      %d\n", snap.ValLen)
	fmt.Printf("Type flag:    0x%08x\n", snap.TypeFlag)
	fmt.Printf("User flag:    0x%08x\n", snap.UserFlag)
	fmt.Printf("Watcher mask: 0x%016x\n", snap.WatcherMask)
	fmt.Printf("Bloom:        0x%016x\n", snap.Bloom)
	fmt.Printf("Ctime:        %d\n", snap.Ctime)
	fmt.Printf("Atime:        %d\n", snap.Atime)
}

func (r *repl) cmdScrub(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: scrub <none|hybrid|full>")

		return
	}

	var err error

	switch strings.ToLower(args[0]) {
	case "none":
		err = r.region.SetAutoScrub(false)
	case "full":
		// Clearing first drops a previously set hybrid bit.
		err = r.region.SetAutoScrub(false)
		if err == nil {
			err = r.region.SetAutoScrub(true)
		}
	case "hybrid":
		err = r.region.SetHybridScrub()
	default:
		fmt.Printf("Unknown scrub policy: %s\n", args[0])

		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *repl) cmdPurge() {
	if err := r.region.Purge(); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK: purge complete")
}

// decodeValueArg tries hex first, falling back to the literal text.
func decodeValueArg(s string) []byte {
	if raw, err := hex.DecodeString(s); err == nil && len(s)%2 == 0 {
		return raw
	}

	return []byte(s)
}

// formatValue shows a value as text if printable, otherwise as hex.
func formatValue(b []byte) string {
	printable := true

	for _, c := range b {
		if c < 32 || c > 126 {
			printable = false

			break
		}
	}

	if printable {
		return fmt.Sprintf("%q", string(b))
	}

	return hex.EncodeToString(b)
}
