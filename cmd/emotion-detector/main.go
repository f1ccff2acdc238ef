package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	emotiondetector "github.com/menta2k/emotion-detector"
	"github.com/menta2k/emotion-detector/internal/config"
	"github.com/menta2k/emotion-detector/internal/logging"
	"github.com/menta2k/emotion-detector/internal/utils"
	"github.com/menta2k/emotion-detector/pkg/audio/portaudio"
	"github.com/menta2k/emotion-detector/pkg/gui"
	"github.com/menta2k/emotion-detector/pkg/gui/desktop"
	"github.com/menta2k/emotion-detector/pkg/vision/cascade"
)

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "emotion-detector",
		Short:         "Multi-modal emotion detection from faces, voice and text",
		Version:       emotiondetector.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGUI,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug|info|warn|error")

	root.AddCommand(guiCmd(), faceCmd(), textCmd(), voiceCmd(), configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env holds what every subcommand needs
type env struct {
	cfg *config.Config
	log *logrus.Logger
}

func setup() (*env, error) {
	path := configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.WithField("path", path).Debug("loaded config")
	}
	return &env{cfg: cfg, log: log}, nil
}

// open builds the detector with the requested hardware; the returned func
// releases it
func (e *env) open(withCascade, withCamera, withMic bool) (*emotiondetector.EmotionDetector, func(), error) {
	var dev emotiondetector.Devices
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if withCascade {
		cl, err := cascade.NewClassifier(e.cfg.Face.CascadePath, e.cfg.Face.Detection())
		if err != nil {
			return nil, nil, err
		}
		dev.Locator = cl
		closers = append(closers, func() { cl.Close() })
	}
	if withCamera {
		dev.Camera = cascade.NewWebcam()
	}
	if withMic {
		mic := portaudio.NewDevice()
		dev.Microphone = mic
		closers = append(closers, func() {
			if err := mic.Close(); err != nil {
				e.log.WithError(err).Warn("failed to terminate audio")
			}
		})
	}

	ed, err := emotiondetector.NewFromConfig(e.cfg, dev, e.log)
	if err != nil {
		release()
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := ed.Close(); err != nil {
			e.log.WithError(err).Warn("failed to release devices")
		}
	})
	return ed, release, nil
}

func guiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop window (default)",
		RunE:  runGUI,
	}
}

func runGUI(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ed, release, err := e.open(true, true, true)
	if err != nil {
		return err
	}
	defer release()

	ctrl := gui.NewController(ed.Face(), ed.Text(), ed.Voice())
	ctrl.SetLogger(e.log.WithField("component", "gui"))

	opts := desktop.DefaultOptions()
	opts.Title = e.cfg.GUI.Title
	opts.Width = float32(e.cfg.GUI.Width)
	opts.Height = float32(e.cfg.GUI.Height)
	opts.FrameInterval = e.cfg.GUI.FrameInterval()
	opts.TextTimeout = e.cfg.Text.Timeout()

	desktop.NewApp(ctrl, opts).Run()
	return nil
}

func faceCmd() *cobra.Command {
	var outDir, format string
	var camera bool
	var frames int

	cmd := &cobra.Command{
		Use:   "face [image path, directory or URL]",
		Short: "Detect faces in images or in camera frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !camera && len(args) == 0 {
				return fmt.Errorf("an image path or --camera is required")
			}
			e, err := setup()
			if err != nil {
				return err
			}
			ed, release, err := e.open(true, camera, false)
			if err != nil {
				return err
			}
			defer release()

			if camera {
				return runCamera(ed, e.log, frames, e.cfg.GUI.FrameInterval())
			}

			if utils.DirExists(args[0]) {
				return runBatch(ed, e.log, args[0], outDir, format)
			}
			if outDir == "" {
				res, err := ed.AnalyzeImageFile(args[0])
				if err != nil {
					return err
				}
				return printJSON(res)
			}
			res, out, err := ed.ProcessImageFile(args[0], outDir, format)
			if err != nil {
				return err
			}
			e.log.WithField("path", out).Info("wrote annotated image")
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "write the annotated image to this directory")
	cmd.Flags().StringVar(&format, "format", "", "annotated image format: jpg|png|webp (default: input format)")
	cmd.Flags().BoolVar(&camera, "camera", false, "read frames from the configured camera")
	cmd.Flags().IntVar(&frames, "frames", 30, "number of camera frames to analyze")
	return cmd
}

func runBatch(ed *emotiondetector.EmotionDetector, log logrus.FieldLogger, dir, outDir, format string) error {
	if outDir == "" {
		return fmt.Errorf("--out is required when analyzing a directory")
	}
	files, err := utils.ListImageFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	results := make(map[string]emotiondetector.ImageAnalysis, len(files))
	for _, f := range files {
		res, out, err := ed.ProcessImageFile(f, outDir, format)
		if err != nil {
			log.WithError(err).WithField("path", f).Warn("skipping image")
			continue
		}
		log.WithFields(logrus.Fields{"path": out, "faces": len(res.Faces)}).Info("wrote annotated image")
		results[f] = res
	}
	return printJSON(results)
}

func runCamera(ed *emotiondetector.EmotionDetector, log logrus.FieldLogger, frames int, interval time.Duration) error {
	face := ed.Face()
	if err := face.StartVideoCapture(); err != nil {
		return err
	}
	defer face.StopVideoCapture()

	for i := 0; i < frames; i++ {
		_, faces, err := face.GetVideoFrame()
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"frame": i, "faces": len(faces)}).Info(gui.FormatFaces(faces))
		time.Sleep(interval)
	}
	return nil
}

func textCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text <text>",
		Short: "Classify the emotion of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			ed, release, err := e.open(false, false, false)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Text.Timeout())
			defer cancel()
			return printJSON(ed.AnalyzeText(ctx, strings.Join(args, " ")))
		},
	}
}

func voiceCmd() *cobra.Command {
	var wavPath string
	var seconds float64

	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Extract voice features from a WAV file or a microphone recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			ed, release, err := e.open(false, false, wavPath == "")
			if err != nil {
				return err
			}
			defer release()

			if wavPath != "" {
				if !utils.IsAudioFile(wavPath) {
					return fmt.Errorf("unsupported audio file: %s", wavPath)
				}
				res, err := ed.AnalyzeAudioFile(wavPath)
				if err != nil {
					return err
				}
				return printJSON(res)
			}

			vc := ed.Voice()
			if err := vc.StartRecording(); err != nil {
				return err
			}
			e.log.WithField("seconds", seconds).Info("recording")
			time.Sleep(time.Duration(seconds * float64(time.Second)))
			res, err := vc.StopRecording()
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("no audio captured")
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&wavPath, "wav", "", "analyze a WAV file instead of recording")
	cmd.Flags().Float64Var(&seconds, "seconds", 3, "recording length")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(e.cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if utils.FileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
