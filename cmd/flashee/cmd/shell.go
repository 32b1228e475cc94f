package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/donocean/go-flashee"
)

// shellCmd opens an interactive REPL against a live engine. The write, read
// and dump commands operate directly on the mounted image (there is no
// swap command); each command that mutates the image is flushed before the
// prompt returns.
func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive REPL for reading and writing variables",
		RunE: func(c *cobra.Command, args []string) error {
			e, f, err := openEngine()
			if err != nil {
				return err
			}
			defer f.Close()

			if term.IsTerminal(int(os.Stdin.Fd())) {
				return runInteractiveShell(e)
			}
			return runPipedShell(e, os.Stdin)
		},
	}
}

func runInteractiveShell(e *flashee.Engine) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	fmt.Println("flashee shell — commands: write <id> <hex>, read <id>, dump, quit")

	for {
		input, err := line.Prompt("flashee> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if shouldQuit := dispatch(e, input); shouldQuit {
			return nil
		}
	}
}

func runPipedShell(e *flashee.Engine, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if shouldQuit := dispatch(e, input); shouldQuit {
			return nil
		}
	}
	return scanner.Err()
}

// dispatch runs one shell command line, returning true if the shell should
// exit.
func dispatch(e *flashee.Engine, input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true

	case "write":
		if len(fields) != 3 {
			fmt.Println("usage: write <id> <hex>")
			return false
		}
		id, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			fmt.Printf("bad id: %v\n", err)
			return false
		}
		buf, err := hex.DecodeString(fields[2])
		if err != nil {
			fmt.Printf("bad hex value: %v\n", err)
			return false
		}
		if err := e.Write(flashee.VariableID(id), buf); err != nil {
			fmt.Printf("write failed: result-code (%d): %v\n", flashee.WriteCode(err), err)
			return false
		}
		fmt.Printf("ok\n")

	case "read":
		if len(fields) != 2 {
			fmt.Println("usage: read <id>")
			return false
		}
		id, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			fmt.Printf("bad id: %v\n", err)
			return false
		}
		buf, err := e.Read(flashee.VariableID(id))
		if err != nil {
			fmt.Printf("read failed: result-code (%d): %v\n", flashee.ReadCode(err), err)
			return false
		}
		fmt.Printf("%x\n", buf)

	case "dump":
		report, err := e.Report()
		if err != nil {
			fmt.Printf("dump failed: %v\n", err)
			return false
		}
		fmt.Println(report.String())

	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}

	return false
}
