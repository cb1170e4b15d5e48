package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/face-auth/internal/face"
	"github.com/example/face-auth/internal/imagedecode"
	"github.com/example/face-auth/internal/similarity"
)

type vectorSummary struct {
	Image  string      `json:"image"`
	Region face.Region `json:"region"`
	Length int         `json:"length"`
	Min    float32     `json:"min"`
	Max    float32     `json:"max"`
	Mean   float64     `json:"mean"`
}

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize <image>...",
	Short: "Detect the face in each image and print a summary of its feature vector",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorizer, err := buildVectorizer(cfg)
		if err != nil {
			return err
		}
		decoder := &imagedecode.Decoder{MaxPixels: cfg.MaxImagePixels}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, path := range args {
			region, vec, err := vectorizeFile(vectorizer, decoder, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := enc.Encode(summarize(path, region, vec)); err != nil {
				return err
			}
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <enrolled> <probe>",
	Short: "Score two images the way verification does",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorizer, err := buildVectorizer(cfg)
		if err != nil {
			return err
		}
		decoder := &imagedecode.Decoder{MaxPixels: cfg.MaxImagePixels}

		_, enrolled, err := vectorizeFile(vectorizer, decoder, args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		_, probe, err := vectorizeFile(vectorizer, decoder, args[1])
		if err != nil {
			return fmt.Errorf("%s: %w", args[1], err)
		}

		engine := similarity.NewEngine(cfg.MatchThreshold)
		score, match, err := engine.Score(enrolled, probe)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "score=%.4f threshold=%.2f match=%t\n", score, engine.Threshold(), match)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vectorizeCmd, compareCmd)
}

func vectorizeFile(v *face.Vectorizer, decoder *imagedecode.Decoder, path string) (face.Region, face.FeatureVector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return face.Region{}, nil, err
	}
	grid, err := decoder.Decode(data)
	if err != nil {
		return face.Region{}, nil, err
	}
	return v.DetectAndVectorize(grid)
}

func summarize(path string, region face.Region, vec face.FeatureVector) vectorSummary {
	s := vectorSummary{Image: path, Region: region, Length: len(vec)}
	if len(vec) == 0 {
		return s
	}
	s.Min, s.Max = vec[0], vec[0]
	var sum float64
	for _, v := range vec {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		sum += float64(v)
	}
	s.Mean = sum / float64(len(vec))
	return s
}
