package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	automationhandler "regengine/internal/automation/handler"
	"regengine/internal/automation/models"
	"regengine/internal/deadline"
	"regengine/internal/platform/config"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitBroken = 2
	exitUsage  = 3
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type classifyFlags struct {
	due          string
	typ          string
	now          string
	completed    bool
	riskFraction float64
	policyFile   string
	format       string
}

type actionsFlags struct {
	status string
	typ    string
	format string
}

type verifyFlags struct {
	file   string
	runID  string
	format string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "regctl",
		Short:         "Offline tooling for regulatory deadlines and audit trails",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	var cf classifyFlags
	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a deadline and list the escalations it allows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd.OutOrStdout(), cf)
		},
	}
	f := classifyCmd.Flags()
	f.StringVar(&cf.due, "due", "", "Due date (RFC 3339)")
	f.StringVar(&cf.typ, "type", "", "Regulatory type: dsr, breach-notification, dpia-review, vendor-review, or any other")
	f.StringVar(&cf.now, "now", "", "Evaluate as of this instant (RFC 3339); defaults to the current time")
	f.BoolVar(&cf.completed, "completed", false, "Treat the deadline as completed")
	f.Float64Var(&cf.riskFraction, "risk-fraction", deadline.DefaultRiskFraction, "Share of the SLA window that counts as at risk")
	f.StringVar(&cf.policyFile, "policy", "", "YAML policy file overriding windows and risk fraction")
	f.StringVar(&cf.format, "format", "text", "Output format: text or json")
	_ = classifyCmd.MarkFlagRequired("type")

	var af actionsFlags
	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "List the escalations available for a status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runActions(cmd.OutOrStdout(), af)
		},
	}
	f = actionsCmd.Flags()
	f.StringVar(&af.status, "status", "", "Deadline status: on-track, at-risk, overdue, completed")
	f.StringVar(&af.typ, "type", "", "Regulatory type")
	f.StringVar(&af.format, "format", "text", "Output format: text or json")
	_ = actionsCmd.MarkFlagRequired("status")

	var vf verifyFlags
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chain of a trail exported from GET /runs/{id}/trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.OutOrStdout(), cmd.InOrStdin(), vf)
		},
	}
	f = verifyCmd.Flags()
	f.StringVar(&vf.file, "file", "-", "Trail JSON file, or - for stdin")
	f.StringVar(&vf.runID, "run", "", "Run ID; defaults to the run_id in the trail")
	f.StringVar(&vf.format, "format", "text", "Output format: text or json")

	root.AddCommand(classifyCmd, actionsCmd, verifyCmd)
	return root
}

type classifyOutput struct {
	Type             string   `json:"type"`
	Status           string   `json:"status"`
	RemainingDisplay string   `json:"remaining_display"`
	Tone             string   `json:"tone"`
	Actions          []string `json:"actions"`
}

func runClassify(out io.Writer, flags classifyFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	policy, err := config.Server{RiskFraction: flags.riskFraction, PolicyFile: flags.policyFile}.Policy()
	if err != nil {
		return codeError(exitUsage, "policy: %s", err)
	}
	classifier, err := deadline.NewClassifier(policy)
	if err != nil {
		return codeError(exitUsage, "policy: %s", err)
	}

	d := deadline.Deadline{Type: deadline.ParseRegulatoryType(flags.typ), Completed: flags.completed}
	if flags.due != "" {
		if d.DueAt, err = time.Parse(time.RFC3339, flags.due); err != nil {
			return codeError(exitUsage, "--due: %s", err)
		}
	} else if !flags.completed {
		return codeError(exitUsage, "--due is required unless --completed is set")
	}
	now := time.Now()
	if flags.now != "" {
		if now, err = time.Parse(time.RFC3339, flags.now); err != nil {
			return codeError(exitUsage, "--now: %s", err)
		}
	}

	cls, err := d.Classify(classifier, now)
	if err != nil {
		return codeError(exitUsage, "%s", err)
	}
	res := classifyOutput{
		Type:             string(d.Type),
		Status:           string(cls.Status),
		RemainingDisplay: cls.RemainingDisplay,
		Tone:             string(cls.Status.Tone()),
		Actions:          deadline.AvailableActions(cls.Status, d.Type).Strings(),
	}
	if flags.format == "json" {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", res.Status, res.RemainingDisplay, actionsText(res.Actions))
	return nil
}

func runActions(out io.Writer, flags actionsFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	status, err := deadline.ParseStatus(flags.status)
	if err != nil {
		return codeError(exitUsage, "%s", err)
	}
	actions := deadline.AvailableActions(status, deadline.ParseRegulatoryType(flags.typ)).Strings()
	if flags.format == "json" {
		return writeJSON(out, map[string]any{"status": status, "tone": status.Tone(), "actions": actions})
	}
	fmt.Fprintln(out, actionsText(actions))
	return nil
}

func runVerify(out io.Writer, stdin io.Reader, flags verifyFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	in := stdin
	if flags.file != "-" {
		fh, err := os.Open(flags.file)
		if err != nil {
			return codeError(exitUsage, "open trail: %s", err)
		}
		defer fh.Close()
		in = fh
	}

	var trail automationhandler.TrailResponse
	dec := json.NewDecoder(in)
	dec.UseNumber()
	if err := dec.Decode(&trail); err != nil {
		return codeError(exitUsage, "decode trail: %s", err)
	}
	runID := flags.runID
	if runID == "" {
		runID = trail.RunID
	}
	if runID == "" {
		return codeError(exitUsage, "trail has no run_id; pass --run")
	}

	v, err := models.VerifyChain(runID, trail.RecordedSteps())
	if err != nil {
		return err
	}
	if flags.format == "json" {
		if err := writeJSON(out, v); err != nil {
			return err
		}
	} else if v.Valid {
		fmt.Fprintf(out, "ok\t%s\t%d steps\thead %s\n", v.RunID, v.Steps, v.HeadHash)
	} else {
		fmt.Fprintf(out, "broken\t%s\tposition %d\t%s\n", v.RunID, v.BrokenAt, v.Reason)
	}
	if !v.Valid {
		return codeError(exitBroken, "trail %s is broken at position %d", v.RunID, v.BrokenAt)
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return codeError(exitUsage, "--format must be text or json, got %q", format)
	}
}

func actionsText(actions []string) string {
	if len(actions) == 0 {
		return "none"
	}
	return strings.Join(actions, ",")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
