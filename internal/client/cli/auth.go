package cli

import (
	"context"
	"fmt"
	"os"
)

// Register prompts for credentials and creates a new account.
func (a *App) Register(ctx context.Context) error {

	login, err := GetSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := a.client.Register(ctx, login, string(password)); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Success!")
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {

	login, err := GetSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := a.client.Login(ctx, login, string(password)); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Logged in!")
	return nil
}

// Logout closes the current session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Logged out!")
	return nil
}
