package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/lesspaper/internal/model"
)

func instructorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructor",
		Short: "Manage instructor accounts",
	}
	add := &cobra.Command{
		Use:   "add username",
		Short: "Create an instructor",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstructorAdd,
	}
	add.Flags().String("password", "", "Password for the new instructor (or set LESSPAPER_PASSWORD)")
	add.Flags().String("display-name", "", "Display name (defaults to the username)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List instructors",
		Args:  cobra.NoArgs,
		RunE:  runInstructorList,
	}
	disable := &cobra.Command{
		Use:   "disable username",
		Short: "Prevent an instructor from signing in",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setInstructorActive(cmd, args[0], false) },
	}
	enable := &cobra.Command{
		Use:   "enable username",
		Short: "Allow a disabled instructor to sign in again",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setInstructorActive(cmd, args[0], true) },
	}

	for _, sub := range []*cobra.Command{add, list, disable, enable} {
		addStoreFlags(sub.Flags())
		addLogFlags(sub.Flags())
		cmd.AddCommand(sub)
	}
	return cmd
}

func runInstructorAdd(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	username := strings.TrimSpace(args[0])
	password := v.GetString("password")
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	displayName := v.GetString("display-name")
	if displayName == "" {
		displayName = username
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	id, err := db.CreateInstructor(model.Instructor{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created instructor %s (id %d)\n", username, id)
	return nil
}

func runInstructorList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	instructors, err := db.ListInstructors()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tDISPLAY NAME\tACTIVE\tCREATED")
	for _, u := range instructors {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.DisplayName, u.Active, u.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func setInstructorActive(cmd *cobra.Command, username string, active bool) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := db.GetInstructorByUsername(username)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("instructor %q not found", username)
	}
	if err := db.SetInstructorActive(u.ID, active); err != nil {
		return err
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, username)
	return nil
}
