package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/errclass"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and start a session",
	Long: `Log in and start a session shared by later commands until 'regis logout'.

The password is taken from --password, or read from the terminal without
echo, or from the first line of standard input when it is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd)
		if err != nil {
			return err
		}
		defer reg.Close()

		if current, err := reg.sessions.Load(); err == nil {
			return errclass.ErrValidation.WithMessagef("already logged in as %s; run 'regis logout' first", current.Username)
		}

		password := loginPassword
		if !cmd.Flags().Changed("password") {
			password, err = readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}

		session, err := reg.authenticator().Login(args[0], password)
		if err != nil {
			return err
		}
		if err := reg.sessions.Save(session); err != nil {
			return err
		}
		for _, w := range reg.audit.Warnings() {
			fmtWarn("%s", w)
		}

		if jsonOutput {
			return outputJSON(session)
		}
		fmt.Printf("Logged in as %s (%s)\n", color.Success(session.Username), session.Role)
		return nil
	},
}

// readPassword prompts on the terminal when in is one, otherwise it reads
// the first line of in.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", errclass.ErrIOFailure.Wrap(err, "read password")
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errclass.ErrIOFailure.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prefer the prompt or stdin)")
	rootCmd.AddCommand(loginCmd)
}
