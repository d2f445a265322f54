package cli

import (
	"context"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// MathCmd returns the math command.
func MathCmd(s *session) *Command {
	fs := flag.NewFlagSet("math", flag.ContinueOnError)
	fs.Bool("negative", false, "Allow '-' to produce results below 1 instead of clamping to 0")

	return &Command{
		Flags: fs,
		Usage: "math <key> <op> <n> [flags]",
		Short: "Apply + - * / or % to the number at a key",
		Long: `Apply an arithmetic operator to the number stored at a key and store the result.

n must be a positive number. A missing key is set to n. Numeric strings and
booleans are coerced to numbers. Without --negative, subtraction results
below 1 are stored as 0.

Examples:
  docdb math visits + 1
  docdb math price '*' 1.2
  docdb math stock - 5 --negative`,
		Args: 3,
		Exec: func(_ context.Context, o *IO, args []string) error {
			allowNegative, _ := fs.GetBool("negative")

			op, err := docdb.ParseOperator(args[1])
			if err != nil {
				return err
			}

			return execMath(s, o, args[0], op, args[2], allowNegative)
		},
	}
}

// AddCmd returns the add command.
func AddCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("add", flag.ContinueOnError),
		Usage: "add <key> <n>",
		Short: "Add n to the number at a key",
		Args:  2,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execMath(s, o, args[0], docdb.OpAdd, args[1], false)
		},
	}
}

// SubCmd returns the sub command.
func SubCmd(s *session) *Command {
	fs := flag.NewFlagSet("sub", flag.ContinueOnError)
	fs.Bool("negative", false, "Allow results below 1 instead of clamping to 0")

	return &Command{
		Flags: fs,
		Usage: "sub <key> <n> [flags]",
		Short: "Subtract n from the number at a key",
		Args:  2,
		Exec: func(_ context.Context, o *IO, args []string) error {
			allowNegative, _ := fs.GetBool("negative")

			return execMath(s, o, args[0], docdb.OpSub, args[1], allowNegative)
		},
	}
}

func execMath(s *session, o *IO, key string, op docdb.Operator, operand string, allowNegative bool) error {
	n, err := strconv.ParseFloat(operand, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", docdb.ErrInvalidValue, operand)
	}

	db, err := s.open()
	if err != nil {
		return err
	}

	result, err := db.Math(key, op, n, allowNegative)
	if err != nil {
		return err
	}

	o.Println(formatNode(result))

	return nil
}
