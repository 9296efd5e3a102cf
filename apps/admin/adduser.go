package main

import (
	"context"
	"fmt"
	"time"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if role != user.RoleTeacher && role != user.RoleStudent {
		return fmt.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	usr.Name = name
	usr.Role = role
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
