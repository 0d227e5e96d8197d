package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/go-pkgz/lgr"
	gonotify "github.com/go-pkgz/notify"
	"github.com/robfig/cron/v3"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/fleetcheck/app/browser"
	"github.com/umputun/fleetcheck/app/config"
	"github.com/umputun/fleetcheck/app/history"
	"github.com/umputun/fleetcheck/app/notify"
	"github.com/umputun/fleetcheck/app/pages"
	"github.com/umputun/fleetcheck/app/sandbox"
	"github.com/umputun/fleetcheck/app/watch"
)

type checkCmd struct {
	Login    bool `long:"login" description:"sign in with the profile user after the reachability check"`
	Attempts int  `long:"attempts" default:"3" description:"tries of every reachability check"`
}

type navigateCmd struct {
	Install bool `long:"install" description:"install the browser before launch"`
}

type sandboxCmd struct {
	Address string `short:"a" long:"address" env:"ADDRESS" default:"127.0.0.1:8090" description:"listen address"`
}

type watchCmd struct {
	Spec        string        `long:"spec" env:"SPEC" default:"*/15 * * * *" description:"cron schedule of the checks"`
	Login       bool          `long:"login" env:"LOGIN" description:"sign in with the profile user on every check"`
	Attempts    int           `long:"attempts" default:"3" description:"tries of every reachability check"`
	Jitter      time.Duration `long:"jitter" env:"JITTER" description:"random delay before each check, up to this value"`
	MaxCPU      int           `long:"max-cpu" env:"MAX_CPU" description:"postpone checks while cpu usage is at or above, percent"`
	MaxMemory   int           `long:"max-mem" env:"MAX_MEM" description:"postpone checks while memory usage is at or above, percent"`
	MaxLoad     float64       `long:"max-load" env:"MAX_LOAD" description:"postpone checks while 1m load average is at or above"`
	MaxPostpone time.Duration `long:"max-postpone" env:"MAX_POSTPONE" default:"5m" description:"run anyway after this delay, 0 skips the check"`
}

type historyCmd struct {
	Command string `long:"command" description:"show runs of this command only"`
	Limit   int    `short:"n" long:"limit" default:"20" description:"max runs to show"`
	Prune   int    `long:"prune" description:"keep this many newest runs and remove the rest"`
}

var opts struct {
	Profile string `short:"p" long:"profile" env:"FLEETCHECK_PROFILE" description:"run profile yaml file"`
	DotEnv  string `long:"dotenv" env:"FLEETCHECK_DOTENV" default:".env" description:"env file with overrides"`
	Dbg     bool   `long:"dbg" env:"DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		Filename        string `long:"filename" env:"FILENAME" description:"file to write logs to, stdout if not set"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"maximum size in megabytes before rotation"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"maximum number of old log files to retain"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"maximum number of days to retain old log files"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"FLEETCHECK_LOG"`

	Browser struct {
		Name       string `long:"name" env:"NAME" choice:"chromium" choice:"firefox" choice:"webkit" description:"browser engine, overrides the profile"`
		ReportsDir string `long:"reports" env:"REPORTS" description:"screenshots directory, overrides the profile"`
	} `group:"browser" namespace:"browser" env-namespace:"FLEETCHECK_BROWSER"`

	Notify struct {
		EnabledError   bool          `long:"enabled-error" env:"ENABLED_ERROR" description:"notify on failed runs"`
		EnabledSuccess bool          `long:"enabled-success" env:"ENABLED_SUCCESS" description:"notify on passed runs"`
		SMTPHost       string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort       int           `long:"smtp-port" env:"SMTP_PORT" description:"SMTP port"`
		SMTPUsername   string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword   string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS        bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		SMTPStartTLS   bool          `long:"smtp-starttls" env:"SMTP_STARTTLS" description:"enable SMTP StartTLS"`
		SMTPTimeOut    time.Duration `long:"smtp-timeout" env:"SMTP_TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		FromEmail      string        `long:"from" env:"FROM" description:"SMTP from email"`
		ToEmails       []string      `long:"to" env:"TO" description:"SMTP to email(s)" env-delim:","`
		Webhooks       []string      `long:"webhook" env:"WEBHOOK" description:"webhook url(s)" env-delim:","`
		Template       string        `long:"template" env:"TEMPLATE" description:"html report template file"`
		HostName       string        `long:"host" env:"HOSTNAME" description:"host name running fleetcheck"`
	} `group:"notify" namespace:"notify" env-namespace:"FLEETCHECK_NOTIFY"`

	Sandbox struct {
		DBPath   string `long:"db" env:"DB" default:":memory:" description:"sandbox sqlite database"`
		SeedFile string `long:"seed" env:"SEED" description:"yaml seed, the embedded one if not set"`
	} `group:"sandbox" namespace:"sandbox" env-namespace:"FLEETCHECK_SANDBOX"`

	History struct {
		Enabled bool   `long:"enabled" env:"ENABLED" description:"record runs"`
		DBPath  string `long:"db" env:"DB" default:"fleetcheck-history.db" description:"history sqlite database"`
	} `group:"history" namespace:"history" env-namespace:"FLEETCHECK_HISTORY"`

	Check      checkCmd    `command:"check" description:"check the application is reachable and, optionally, sign in"`
	Navigate   navigateCmd `command:"navigate" description:"debug navigation to the reference site and the application"`
	SandboxCmd sandboxCmd  `command:"sandbox" description:"serve the local stand-in of the fleet application"`
	HistoryCmd historyCmd  `command:"history" description:"list recent runs"`
	Watch      watchCmd    `command:"watch" description:"repeat the check on a cron schedule"`
}

var revision = "unknown"

var (
	// errRunFailed is returned by commands which ran but found the target broken
	errRunFailed = errors.New("run failed")
	// errUnexpected marks failures of the tool itself
	errUnexpected = errors.New("unexpected error")
)

func main() {
	fmt.Printf("fleetcheck %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		os.Exit(parseExitCode(err))
	}
	logOut := setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	code := run(ctx, p.Active.Name)
	cancel()
	if closer, ok := logOut.(io.Closer); ok && logOut != os.Stdout {
		_ = closer.Close()
	}
	os.Exit(code)
}

// parseExitCode is 0 for --help and 2 for any other flags error
func parseExitCode(err error) int {
	var fe *flags.Error
	if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
		return 0
	}
	return 2
}

// run executes the active command and returns the exit code
func run(ctx context.Context, command string) int {
	switch command {
	case "sandbox":
		if err := runSandbox(ctx); err != nil {
			log.Printf("[ERROR] %v", err)
			return 1
		}
		return 0
	case "history":
		if err := runHistory(ctx, os.Stdout); err != nil {
			log.Printf("[ERROR] %v", err)
			return 1
		}
		return 0
	}

	prof, err := loadProfile()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		if command == "navigate" {
			return browser.ExitUnexpected
		}
		return 1
	}
	if command == "watch" {
		if err := runWatch(ctx, prof, os.Stdout); err != nil {
			log.Printf("[ERROR] %v", err)
			return 1
		}
		return 0
	}

	rec := newRecorder(ctx, command, prof.BaseURL)
	defer rec.close()

	switch command {
	case "check":
		err = runCheck(ctx, prof, os.Stdout, opts.Check.Attempts, opts.Check.Login)
		rec.finish(ctx, err)
		if err != nil {
			return 1
		}
	case "navigate":
		rep, navErr := runNavigate(prof)
		switch {
		case navErr != nil:
			rec.finish(ctx, fmt.Errorf("%w: %v", errUnexpected, navErr))
			return browser.ExitUnexpected
		case rep.ExitCode() != browser.ExitOK:
			rec.finish(ctx, fmt.Errorf("%w: %v", errRunFailed, rep.Target.Err))
			return rep.ExitCode()
		}
		rec.finish(ctx, nil)
	}
	return 0
}

func loadProfile() (*config.Profile, error) {
	prof, err := config.Load(opts.Profile, opts.DotEnv)
	if err != nil {
		return nil, fmt.Errorf("can't load profile: %w", err)
	}
	if opts.Browser.Name != "" {
		prof.Browser.Name = opts.Browser.Name
	}
	if opts.Browser.ReportsDir != "" {
		prof.ReportsDir = opts.Browser.ReportsDir
	}
	return prof, nil
}

// runCheck checks the application and extra targets are reachable and signs in if asked
func runCheck(ctx context.Context, prof *config.Profile, out io.Writer, attempts int, login bool) error {
	checker := browser.NewChecker(prof.Timeouts.Preflight, attempts)
	results, err := browser.Preflight(ctx, checker, prof.BaseURL, prof.Targets...)
	if err != nil {
		return err
	}
	printReachability(out, results)
	if !results[0].OK() {
		return fmt.Errorf("%w: %s", errRunFailed, results[0])
	}
	if !login {
		return nil
	}
	if prof.User.Email == "" {
		return fmt.Errorf("%w: login check needs TEST_USER_EMAIL and TEST_USER_PASSWORD", errUnexpected)
	}

	sess, err := browser.Start(browser.OptionsFromProfile(prof))
	if err != nil {
		return fmt.Errorf("%w: %v", errUnexpected, err)
	}
	app := pages.New(sess.Page, prof)
	loginErr := app.Login.OpenAndSignIn(prof.User)
	if loginErr == nil && !app.Header.IsLoggedIn() {
		loginErr = fmt.Errorf("no account menu after sign in as %s", prof.User.Email)
	}
	if err := sess.Finish(loginErr != nil); err != nil {
		log.Printf("[WARN] can't close browser, %v", err)
	}
	if loginErr != nil {
		fmt.Fprintf(out, "%s sign in as %s, %v\n", color.RedString("FAIL"), prof.User.Email, loginErr)
		return fmt.Errorf("%w: %v", errRunFailed, loginErr)
	}
	fmt.Fprintf(out, "%s sign in as %s\n", color.GreenString("OK  "), prof.User.Email)
	return nil
}

func printReachability(out io.Writer, results []browser.Reachability) {
	for _, r := range results {
		mark := color.GreenString("OK  ")
		if !r.OK() {
			mark = color.RedString("FAIL")
		}
		fmt.Fprintf(out, "%s %s\n", mark, r)
	}
}

// runNavigate opens the reference site and the application in a fresh browser
func runNavigate(prof *config.Profile) (browser.NavReport, error) {
	bopts := browser.OptionsFromProfile(prof)
	bopts.Install = opts.Navigate.Install
	sess, err := browser.Start(bopts)
	if err != nil {
		return browser.NavReport{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("[WARN] can't close browser, %v", err)
		}
	}()
	rep, err := browser.DebugNavigate(sess, prof.BaseURL, prof.Timeouts.Navigation)
	if err != nil {
		return rep, err
	}
	if rep.ExitCode() != browser.ExitOK {
		log.Printf("[ERROR] both %s and %s failed to open", browser.ReferenceURL, prof.BaseURL)
	}
	return rep, nil
}

// runWatch repeats the check on the schedule, each run is recorded and reported on its own
func runWatch(ctx context.Context, prof *config.Profile, out io.Writer) error {
	w := &watch.Watcher{
		Cron: cron.New(),
		Spec: opts.Watch.Spec,
		Job: func(ctx context.Context) error {
			rec := newRecorder(ctx, "watch", prof.BaseURL)
			defer rec.close()
			err := runCheck(ctx, prof, out, opts.Watch.Attempts, opts.Watch.Login)
			rec.finish(ctx, err)
			return err
		},
		Host:        watch.Host{},
		Limits:      watch.Limits{CPUBelow: opts.Watch.MaxCPU, MemoryBelow: opts.Watch.MaxMemory, LoadAvgBelow: opts.Watch.MaxLoad},
		MaxPostpone: opts.Watch.MaxPostpone,
		Jitter:      opts.Watch.Jitter,
	}
	return w.Do(ctx)
}

func runSandbox(ctx context.Context) error {
	srv, err := sandbox.New(ctx, sandbox.Config{DBPath: opts.Sandbox.DBPath, SeedFile: opts.Sandbox.SeedFile,
		Version: revision})
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("[WARN] can't close sandbox, %v", err)
		}
	}()
	return srv.Run(ctx, opts.SandboxCmd.Address)
}

func runHistory(ctx context.Context, out io.Writer) error {
	store, err := history.New(ctx, opts.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.HistoryCmd.Prune > 0 {
		n, err := store.Prune(ctx, opts.HistoryCmd.Prune)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d run(s)\n", n)
	}

	runs, err := store.Recent(ctx, opts.HistoryCmd.Command, opts.HistoryCmd.Limit)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, r := range runs {
		line := r.Line(now)
		switch r.Status {
		case history.StatusPassed:
			line = color.New(color.FgGreen).Sprint(line)
		case history.StatusFailed, history.StatusError:
			line = color.New(color.FgRed).Sprint(line)
		}
		fmt.Fprintln(out, line)
	}

	sum, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "total %d, passed %s, failed %s, errors %s\n", sum.Total,
		color.GreenString("%d", sum.Passed), color.RedString("%d", sum.Failed), color.YellowString("%d", sum.Errors))
	return nil
}

// recorder keeps the history entry of a run and reports its outcome
type recorder struct {
	store    *history.Store
	notifier *notify.Service
	run      history.Run
	started  time.Time
}

func newRecorder(ctx context.Context, command, target string) *recorder {
	res := &recorder{notifier: makeNotifier(), started: time.Now(),
		run: history.Run{Command: command, Target: target}}
	if !opts.History.Enabled {
		return res
	}
	store, err := history.New(ctx, opts.History.DBPath)
	if err != nil {
		log.Printf("[WARN] history disabled, %v", err)
		return res
	}
	if res.run, err = store.Record(ctx, res.run); err != nil {
		log.Printf("[WARN] can't record run, %v", err)
	}
	res.store = store
	return res
}

// finish stores the final status and sends the report. errRunFailed marks a failed run,
// any other error is a tool error.
func (r *recorder) finish(ctx context.Context, runErr error) {
	status, msg := runStatus(runErr)
	r.run.Status, r.run.Message, r.run.Duration = status, msg, time.Since(r.started)
	log.Printf("[INFO] %s %s on %s in %v", r.run.Command, status, r.run.Target, r.run.Duration.Round(time.Millisecond))

	if r.store != nil {
		if err := r.store.Finish(ctx, r.run.ID, status, msg, r.run.Duration); err != nil {
			log.Printf("[WARN] can't finish run, %v", err)
		}
	}
	if r.notifier == nil {
		return
	}
	rep := notify.Report{RunID: r.run.ID, Command: r.run.Command, Target: r.run.Target, Status: status.String(),
		Duration: r.run.Duration, Error: msg, TS: r.started}
	if err := r.notifier.Notify(ctx, rep); err != nil {
		log.Printf("[WARN] can't send notification, %v", err)
	}
}

func (r *recorder) close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		log.Printf("[WARN] can't close history, %v", err)
	}
}

func runStatus(err error) (history.Status, string) {
	switch {
	case err == nil:
		return history.StatusPassed, ""
	case errors.Is(err, errRunFailed):
		return history.StatusFailed, err.Error()
	default:
		return history.StatusError, err.Error()
	}
}

func makeNotifier() *notify.Service {
	if !opts.Notify.EnabledError && !opts.Notify.EnabledSuccess {
		return nil
	}

	if opts.Notify.FromEmail == "" {
		opts.Notify.FromEmail = "fleetcheck@" + makeHostName()
	}

	res := notify.NewService(
		notify.Params{
			EnabledError:   opts.Notify.EnabledError,
			EnabledSuccess: opts.Notify.EnabledSuccess,
			ErrorTemplate:  opts.Notify.Template,
			HostName:       makeHostName(),
		},
		notify.SendersParams{
			SMTPParams: gonotify.SMTPParams{
				Host:        opts.Notify.SMTPHost,
				Port:        opts.Notify.SMTPPort,
				TLS:         opts.Notify.SMTPTLS,
				StartTLS:    opts.Notify.SMTPStartTLS,
				Username:    opts.Notify.SMTPUsername,
				Password:    opts.Notify.SMTPPassword,
				TimeOut:     opts.Notify.SMTPTimeOut,
				ContentType: "text/html",
			},
			FromEmail:   opts.Notify.FromEmail,
			ToEmails:    opts.Notify.ToEmails,
			WebhookURLs: opts.Notify.Webhooks,
		},
	)
	if res == nil {
		log.Printf("[WARN] notifications enabled, but no email or webhook destination set")
	}
	return res
}

func makeHostName() string {
	if opts.Notify.HostName != "" {
		return opts.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// setupLogs configures lgr and returns the log destination, a rotated file if --log.filename is set
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return os.Stdout
	}

	var out io.Writer = os.Stdout
	if opts.Log.Filename != "" {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts := []log.Option{log.Msec, log.Out(out), log.Err(out)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	log.Setup(logOpts...)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received, stopping", strings.ToLower(sig.String()))
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
