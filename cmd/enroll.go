package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/face-auth/internal/usecase"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Register faces in bulk from <userId>.<ext> image files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := enrollmentFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no images found in %s", args[0])
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		var (
			mu       sync.Mutex
			failures []string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(cfg.Workers, 1))
		for _, path := range files {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				userID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				reg, err := enrollFile(gctx, a.enrollment, userID, path)
				if err != nil {
					mu.Lock()
					failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
					mu.Unlock()
				} else {
					logger.Debug("face enrolled", zap.String("user_id", userID), zap.String("request_id", reg.RequestID))
				}
				_ = bar.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		_ = bar.Finish()

		fmt.Fprintf(cmd.OutOrStdout(), "\nenrolled %d of %d\n", len(files)-len(failures), len(files))
		if len(failures) > 0 {
			sort.Strings(failures)
			for _, f := range failures {
				fmt.Fprintln(cmd.OutOrStdout(), "  failed", f)
			}
			return fmt.Errorf("%d enrollments failed", len(failures))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func enrollmentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

type registerer interface {
	Register(ctx context.Context, userID, image string) (*usecase.Registration, error)
}

func enrollFile(ctx context.Context, svc registerer, userID, path string) (*usecase.Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return svc.Register(ctx, userID, base64.StdEncoding.EncodeToString(data))
}
