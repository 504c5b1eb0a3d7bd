package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zaqqye/defense_backend_v1/internal/database"
	"github.com/zaqqye/defense_backend_v1/internal/topic"
)

var (
	importSessionID string
	importFile      string
)

// importTopicsCmd loads a pre-approved catalog. The file is a YAML (or JSON)
// list of topics:
//
//   - supervisor_id: "198706"
//     supervisor_name: Dr. Rina
//     title: Campus energy dashboard
//     max_students: 2
var importTopicsCmd = &cobra.Command{
	Use:   "import-topics",
	Short: "Bulk import approved topics into a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readTopicFile(importFile)
		if err != nil {
			return err
		}
		st, err := database.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		created, err := topic.NewService(st).Import(cmd.Context(), importSessionID, in)
		if err != nil {
			return err
		}
		logger.Info("topics imported",
			zap.String("session_id", importSessionID),
			zap.Int("count", len(created)))
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d topics\n", len(created))
		return nil
	},
}

func readTopicFile(path string) ([]topic.NewTopic, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var out []topic.NewTopic
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return out, nil
}

func init() {
	importTopicsCmd.Flags().StringVar(&importSessionID, "session", "", "session id")
	importTopicsCmd.Flags().StringVarP(&importFile, "file", "f", "-", "topic file, - for stdin")
	_ = importTopicsCmd.MarkFlagRequired("session")
}
