package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.New(message)
		}
		return nil
	}
}

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

// requireFileIDs accepts one or more numeric file ids.
func requireFileIDs(cmd *cobra.Command, args []string) error {
	if err := requireAtLeastArgs(1, "file id is required")(cmd, args); err != nil {
		return err
	}
	_, err := parseFileIDs(args)
	return err
}

func parseFileID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", raw)
	}
	return id, nil
}

func parseFileIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseFileID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
