package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/marquee-data/marquee-cli/internal/refdata"
)

var (
	resolveName string
	resolveList bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a show title or alias against the reference dictionary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dict, err := refdata.Load(cfg.Refdata.Path)
		if err != nil {
			return eris.Wrap(err, "load refdata")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if resolveList {
			subjects := dict.Subjects()
			sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
			return enc.Encode(subjects)
		}

		id, ok := dict.ResolveSubject(resolveName)
		if !ok {
			return eris.Errorf("no subject matches %q", resolveName)
		}
		title, _ := dict.SubjectTitle(id)
		return enc.Encode(map[string]string{"id": id, "title": title})
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "title or alias to resolve")
	resolveCmd.Flags().BoolVar(&resolveList, "list", false, "list all known subjects")
	rootCmd.AddCommand(resolveCmd)
}
