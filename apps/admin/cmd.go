package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/core/privacy"
)

var (
	errHelp = errors.New("help provided")

	errUserAndUsers = errors.New("-user and -users cannot be used together")
)

type commandLine struct {
	provider *privacy.Provider
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  metadata - describe the personal data stored by grade reviews")
	_, _ = fmt.Fprintln(cli.out, "  contexts -user ID - list the contexts where the user wrote grade reviews")
	_, _ = fmt.Fprintln(cli.out, "  users -context ID - list the users who wrote grade reviews in a module context")
	_, _ = fmt.Fprintln(cli.out, "  students -assignment ID -teacher ID - list the students whose submissions the teacher reviewed")
	_, _ = fmt.Fprintln(cli.out, "  export -context ID -submission ID [-user ID] - export the grade reviews of a submission as JSON")
	_, _ = fmt.Fprintln(cli.out, "  delete -context ID [-user ID | -users ID,ID...] - delete grade reviews of a context")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "metadata":
		return cli.writeJSON(cli.provider.Metadata())

	case "contexts":
		cmd := cli.newFlagSet("contexts")
		userID := cmd.Int("user", 0, "The user id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *userID <= 0 {
			cmd.Usage()
			return errHelp
		}
		ids, err := cli.provider.ContextsForUser(ctx, *userID)
		if err != nil {
			return err
		}
		return cli.printIDs(ids)

	case "users":
		cmd := cli.newFlagSet("users")
		contextID := cmd.Int("context", 0, "The module context id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *contextID <= 0 {
			cmd.Usage()
			return errHelp
		}
		ids, err := cli.provider.UserIDsInContext(ctx, privacy.Context{ID: *contextID, Level: gradereview.ContextModule})
		if err != nil {
			return err
		}
		return cli.printIDs(ids)

	case "students":
		cmd := cli.newFlagSet("students")
		assignmentID := cmd.Int("assignment", 0, "The assignment id.")
		teacherID := cmd.Int("teacher", 0, "The teacher's user id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignmentID <= 0 || *teacherID <= 0 {
			cmd.Usage()
			return errHelp
		}
		ids, err := cli.provider.StudentUserIDs(ctx, *assignmentID, *teacherID)
		if err != nil {
			return err
		}
		return cli.printIDs(ids)

	case "export":
		cmd := cli.newFlagSet("export")
		contextID := cmd.Int("context", 0, "The module context id.")
		submissionID := cmd.Int("submission", 0, "The submission id.")
		userID := cmd.Int("user", 0, "Only export the grade reviews written by this user.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *contextID <= 0 || *submissionID <= 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.provider.ExportSubmissionUserData(ctx, privacy.ExportRequest{
			ContextID:    *contextID,
			SubmissionID: *submissionID,
			UserID:       *userID,
			Subcontext:   []string{"submission", strconv.Itoa(*submissionID)},
		}, privacy.NewJSONWriter(cli.out))

	case "delete":
		cmd := cli.newFlagSet("delete")
		contextID := cmd.Int("context", 0, "The module context id.")
		userID := cmd.Int("user", 0, "Only delete the grade reviews written by this user.")
		userIDs := cmd.String("users", "", "Only delete the grade reviews written by these users (comma separated ids).")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		// an explicit -user or -users must select someone: never fall back to the whole context
		set := make(map[string]bool)
		cmd.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if *contextID <= 0 || (set["user"] && *userID <= 0) {
			cmd.Usage()
			return errHelp
		}
		switch {
		case set["user"] && set["users"]:
			return errUserAndUsers
		case set["user"]:
			return cli.provider.DeleteSubmissionForUserID(ctx, *contextID, *userID)
		case set["users"]:
			ids, err := parseIDs(*userIDs)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				cmd.Usage()
				return errHelp
			}
			return cli.provider.DeleteSubmissions(ctx, *contextID, ids)
		default:
			return cli.provider.DeleteSubmissionForContext(ctx, *contextID)
		}

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) printIDs(ids []int) error {
	for _, id := range ids {
		if _, err := fmt.Fprintln(cli.out, id); err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) writeJSON(data interface{}) error {
	return privacy.NewJSONWriter(cli.out).Export([]string{"metadata"}, data)
}

// parseIDs parses a comma separated list of positive ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
