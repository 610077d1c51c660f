package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Upload reads a local file and stores it on the server under the given name.
func (a *App) Upload(ctx context.Context) error {

	path, err := GetSimpleText(a.reader, "Enter local file path", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	name, err := GetSimpleText(a.reader, "Enter name to store as (empty for base name)", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	if name == "" {
		name = filepath.Base(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := a.client.Upload(ctx, name, data); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Uploaded!")
	return nil
}

// Download fetches a stored file and writes it to the local directory.
func (a *App) Download(ctx context.Context) error {

	name, err := GetSimpleText(a.reader, "Enter file name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	data, err := a.client.Download(ctx, name)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := os.WriteFile(filepath.Base(name), data, 0o600); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Saved %s (%d bytes)\n", filepath.Base(name), len(data))
	return nil
}

// Delete removes a stored file.
func (a *App) Delete(ctx context.Context) error {

	name, err := GetSimpleText(a.reader, "Enter file name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := a.client.Delete(ctx, name); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Deleted!")
	return nil
}

// Rename changes the name a stored file is kept under.
func (a *App) Rename(ctx context.Context) error {

	oldName, err := GetSimpleText(a.reader, "Enter current file name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	newName, err := GetSimpleText(a.reader, "Enter new file name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if err := a.client.Rename(ctx, oldName, newName); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Renamed!")
	return nil
}

// List prints the stored files, newest first.
func (a *App) List(ctx context.Context) error {

	files, err := a.client.List(ctx, 0)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if len(files) == 0 {
		fmt.Println("No files stored.")
		return nil
	}

	for _, f := range files {
		fmt.Printf("%s\t%d bytes\t%s\n", f.Filename, f.Size, f.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
