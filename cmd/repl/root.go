package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/XiaonuoGantan/rsedis/cmd/util"
	"github.com/spf13/cobra"
)

// ReplCmd starts an interactive shell on a local store
var ReplCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive shell on an in-memory store",
	Long: `Start an interactive shell on an in-memory store.

Commands use the Redis syntax (e.g. SET key value PX 1000, INCRBY key 5).
Arguments may be quoted like in a POSIX shell. Type HELP for a list of
commands and QUIT to leave.`,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, _ []string) error {
	s, config, err := util.NewStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("rsedis %d databases, max value size %d bytes\n", config.Databases, config.MaxValueBytes)
	fmt.Println("Type commands. 'help' for information or 'quit' to exit.")

	return Run(NewSession(s, os.Stdout, nil), os.Stdin, os.Stdout)
}

// Run reads lines from in and executes them until the input ends or a QUIT command is read.
// The prompt is written to prompt before each line, pass io.Discard to suppress it.
func Run(session *Session, in io.Reader, prompt io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(prompt, session.Prompt())

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("input error: %w", err)
		}

		if session.Exec(strings.TrimSpace(line)) {
			return nil
		}

		if err == io.EOF {
			return nil
		}
	}
}
