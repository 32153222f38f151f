package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"diettracker/internal/app"
	"diettracker/internal/config"
	"diettracker/internal/energy"
	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/services"
	"diettracker/internal/services/camera"
	"diettracker/internal/session"
)

// DetectorFactory builds the detector pool; release frees it.
type DetectorFactory func(cfg *config.Config, logger *logger.Logger) (detectors []session.Detector, release func(), err error)

// DefaultDetectorFactory loads the ONNX model from MODEL_PATH.
func DefaultDetectorFactory(cfg *config.Config, logger *logger.Logger) ([]session.Detector, func(), error) {
	loaded, err := app.NewDetectors(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	detectors := make([]session.Detector, 0, len(loaded))
	for _, d := range loaded {
		detectors = append(detectors, d)
	}
	release := func() {
		for _, d := range loaded {
			d.Close()
		}
	}
	return detectors, release, nil
}

// Options carries injectable dependencies for the commands.
type Options struct {
	Config          *config.Config
	DetectorFactory DetectorFactory
	Stdin           io.Reader
	Stdout          io.Writer
	Stderr          io.Writer
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.Load()
	}
	if o.DetectorFactory == nil {
		o.DetectorFactory = DefaultDetectorFactory
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

var rootCmd = &cobra.Command{
	Use:          "tracker",
	Short:        "Diet tracker - photograph a meal, compare it with your daily calorie goal",
	SilenceUsage: true,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Capture a meal and log it against your goal",
	RunE:  runTrack,
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show what you logged on a day",
	RunE:  runToday,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your stored profile and energy figures",
	RunE:  runProfile,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the foods the tracker recognizes",
	RunE:  runCatalog,
}

var (
	nameFlag   string
	imageFlag  string
	dateFlag   string
	updateFlag bool
)

func init() {
	trackCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "User name (prompted when empty)")
	trackCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Meal photo; the webcam is used when empty")
	trackCmd.Flags().BoolVar(&updateFlag, "update", false, "Enter new biometrics even if a profile is stored")
	todayCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "User name")
	todayCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Day as YYYY-MM-DD, today by default")
	profileCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "User name")
	_ = todayCmd.MarkFlagRequired("name")
	_ = profileCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(trackCmd, todayCmd, profileCmd, catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTrack(cmd *cobra.Command, args []string) error {
	return runTrackWithOptions(nameFlag, imageFlag, updateFlag, Options{})
}

func runToday(cmd *cobra.Command, args []string) error {
	return runTodayWithOptions(nameFlag, dateFlag, Options{})
}

func runProfile(cmd *cobra.Command, args []string) error {
	return runProfileWithOptions(nameFlag, Options{})
}

func runCatalog(cmd *cobra.Command, args []string) error {
	return runCatalogWithOptions(Options{})
}

// newManager builds a manager without photo archive or live view.
func newManager(opts Options, detectors []session.Detector) (*services.Manager, error) {
	log := logger.New(opts.Stderr, opts.Stderr)

	cat, err := app.LoadCatalog(opts.Config)
	if err != nil {
		return nil, err
	}
	eventLog, err := app.OpenEventLog(opts.Config)
	if err != nil {
		return nil, err
	}
	if len(detectors) == 0 {
		// Read-only commands never run a session.
		detectors = []session.Detector{noDetector{}}
	}

	m, err := services.NewManager(detectors, cat, eventLog, nil, nil, opts.Config, log)
	if err != nil {
		eventLog.Close()
		return nil, err
	}
	return m, nil
}

type noDetector struct{}

func (noDetector) Detect([]byte) ([]model.DetectedItem, error) {
	return nil, errors.New("detector not loaded")
}

func runTrackWithOptions(name, imagePath string, update bool, opts Options) error {
	opts = opts.withDefaults()
	in := bufio.NewScanner(opts.Stdin)
	out := opts.Stdout

	if strings.TrimSpace(name) == "" {
		fmt.Fprintln(out, "Enter your name:")
		line, err := prompt(in, out, "Name: ")
		if err != nil {
			return err
		}
		name = line
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &model.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	log := logger.New(opts.Stderr, opts.Stderr)
	detectors, release, err := opts.DetectorFactory(opts.Config, log)
	if err != nil {
		return fmt.Errorf("load detector: %w", err)
	}
	defer release()

	manager, err := newManager(opts, detectors)
	if err != nil {
		return err
	}
	defer manager.Close()

	var (
		fresh   *model.ProfileInput
		profile model.UserProfile
	)
	stored, err := manager.Profile(name)
	switch {
	case err == nil && !update:
		fmt.Fprintf(out, "Found saved profile for %s\n", name)
		profile = stored.Profile
	case err == nil || errors.Is(err, services.ErrNoProfile):
		if update {
			fmt.Fprintln(out, "Please enter your new details:")
		} else {
			fmt.Fprintln(out, "No existing profile found. Please enter details:")
		}
		fresh, err = promptProfile(in, out, name)
		if err != nil {
			return err
		}
		fresh.Replace = update
		if profile, err = model.NewUserProfile(*fresh); err != nil {
			return err
		}
	default:
		return err
	}

	goal, err := energy.DailyCalorieGoal(profile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDaily Calorie Target: %d kcal\n", energy.RoundGoal(goal))

	var src session.ImageSource = camera.FileSource{Path: imagePath}
	if imagePath == "" {
		src = camera.WebcamSource{Device: opts.Config.CameraDevice, Logger: log}
	}

	result, err := manager.Track(name, fresh, src)
	if err != nil {
		return err
	}
	printResult(out, result)
	return nil
}

func printResult(out io.Writer, result *session.Result) {
	if result.State == session.StateAborted {
		fmt.Fprintln(out, result.Message)
		return
	}

	fmt.Fprintf(out, "\nYou are about to eat: %s\n", strings.Join(result.Foods, ", "))
	fmt.Fprintf(out, "Total Calories: %g kcal\n", result.TotalCalories)
	fmt.Fprintln(out, result.Message)
	if result.State == session.StateLogged {
		fmt.Fprintln(out, "Entry logged successfully!")
	}
}

var (
	activityMenu = []model.ActivityLevel{model.Sedentary, model.Light, model.Moderate, model.Active, model.VeryActive}
	goalMenu     = map[string]model.Goal{"1": model.Lose, "2": model.Maintain, "3": model.Gain}
)

func promptProfile(in *bufio.Scanner, out io.Writer, name string) (*model.ProfileInput, error) {
	p := &model.ProfileInput{Name: name}

	age, err := promptNumber(in, out, "Age: ")
	if err != nil {
		return nil, err
	}
	p.Age = int(age)

	if p.Gender, err = prompt(in, out, "Gender (Male/Female): "); err != nil {
		return nil, err
	}
	if p.HeightCm, err = promptNumber(in, out, "Height (cm): "); err != nil {
		return nil, err
	}
	if p.WeightKg, err = promptNumber(in, out, "Weight (kg): "); err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "\nYour activity level:")
	for i, level := range activityMenu {
		fmt.Fprintf(out, "%d. %s\n", i+1, level)
	}
	choice, err := prompt(in, out, "Choose (1-5, Enter for moderate): ")
	if err != nil {
		return nil, err
	}
	p.ActivityLevel = string(model.DefaultActivityLevel)
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(activityMenu) {
		p.ActivityLevel = string(activityMenu[n-1])
	}

	fmt.Fprintln(out, "\nYour goal:")
	fmt.Fprintln(out, "1. Lose Weight")
	fmt.Fprintln(out, "2. Maintain Weight")
	fmt.Fprintln(out, "3. Gain Weight")
	choice, err = prompt(in, out, "Choose (1-3): ")
	if err != nil {
		return nil, err
	}
	goal, ok := goalMenu[choice]
	if !ok {
		goal = model.Maintain
	}
	p.Goal = string(goal)

	return p, nil
}

func prompt(in *bufio.Scanner, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(in.Text()), nil
}

// promptNumber asks until it gets a number or input ends.
func promptNumber(in *bufio.Scanner, out io.Writer, label string) (float64, error) {
	for {
		line, err := prompt(in, out, label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(line, 64)
		if err == nil {
			return v, nil
		}
		fmt.Fprintln(out, "Please enter a number.")
	}
}

func runTodayWithOptions(name, date string, opts Options) error {
	opts = opts.withDefaults()

	day := time.Now()
	if date != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, date, time.Local)
		if err != nil {
			return &model.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
		}
		day = parsed
	}

	manager, err := newManager(opts, nil)
	if err != nil {
		return err
	}
	defer manager.Close()

	report, err := manager.Today(name, day)
	if err != nil {
		return err
	}

	out := opts.Stdout
	if len(report.Events) == 0 {
		fmt.Fprintf(out, "No entries for %s on %s\n", report.User, report.Date)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFOODS\tKCAL")
	for _, e := range report.Events {
		fmt.Fprintf(w, "%s\t%s\t%g\n", e.Timestamp, strings.Join(e.Foods, ", "), e.TotalCalories)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %g kcal of %d kcal\n", report.TotalCalories, report.DailyGoal)
	fmt.Fprintln(out, report.Message)
	return nil
}

func runProfileWithOptions(name string, opts Options) error {
	opts = opts.withDefaults()

	manager, err := newManager(opts, nil)
	if err != nil {
		return err
	}
	defer manager.Close()

	report, err := manager.Profile(name)
	if errors.Is(err, services.ErrNoProfile) {
		fmt.Fprintf(opts.Stdout, "No profile stored for %s\n", strings.TrimSpace(name))
		return nil
	}
	if err != nil {
		return err
	}

	p := report.Profile
	w := tabwriter.NewWriter(opts.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", p.Name)
	fmt.Fprintf(w, "Age\t%d\n", p.Age)
	fmt.Fprintf(w, "Gender\t%s\n", p.Gender)
	fmt.Fprintf(w, "Height\t%g cm\n", p.HeightCm)
	fmt.Fprintf(w, "Weight\t%g kg\n", p.WeightKg)
	fmt.Fprintf(w, "Activity\t%s\n", p.ActivityLevel)
	fmt.Fprintf(w, "Goal\t%s\n", p.Goal)
	fmt.Fprintf(w, "BMR\t%.2f kcal\n", report.Energy.BMR)
	fmt.Fprintf(w, "TDEE\t%.2f kcal\n", report.Energy.TDEE)
	fmt.Fprintf(w, "Daily goal\t%.2f kcal\n", report.Energy.DailyGoal)
	return w.Flush()
}

func runCatalogWithOptions(opts Options) error {
	opts = opts.withDefaults()

	cat, err := app.LoadCatalog(opts.Config)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(opts.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FOOD\tKCAL")
	for _, label := range cat.Labels() {
		kcal, _ := cat.CaloriesFor(label)
		fmt.Fprintf(w, "%s\t%g\n", label, kcal)
	}
	return w.Flush()
}
