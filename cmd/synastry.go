package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"astro-service/aspects"

	"github.com/spf13/cobra"
)

var synastryCmd = &cobra.Command{
	Use:   "synastry",
	Short: "Score compatibility of two charts",
	Long: `Score compatibility of two charts read from JSON files of the form
{"name": "...", "positions": [{"name": "Sun", "longitude": 56.3}, ...]}.`,
	RunE: runSynastry,
}

func init() {
	synastryCmd.Flags().String("p1", "", "first person's chart file")
	synastryCmd.Flags().String("p2", "", "second person's chart file")
	synastryCmd.MarkFlagRequired("p1")
	synastryCmd.MarkFlagRequired("p2")
	rootCmd.AddCommand(synastryCmd)
}

func runSynastry(cmd *cobra.Command, args []string) error {
	p1Path, _ := cmd.Flags().GetString("p1")
	p2Path, _ := cmd.Flags().GetString("p2")

	person1, err := readPerson(p1Path)
	if err != nil {
		return err
	}
	person2, err := readPerson(p2Path)
	if err != nil {
		return err
	}

	result, err := aspects.Compatibility(person1, person2)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readPerson(path string) (aspects.Person, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return aspects.Person{}, fmt.Errorf("failed to read chart: %w", err)
	}
	var person aspects.Person
	if err := json.Unmarshal(data, &person); err != nil {
		return aspects.Person{}, fmt.Errorf("failed to parse chart %s: %w", path, err)
	}
	return person, nil
}
