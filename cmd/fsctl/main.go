package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/urfave/cli/v2"
	"github.com/weberc2/blockfs/pkg/device"
	"github.com/weberc2/blockfs/pkg/filesystem"
	"github.com/weberc2/blockfs/pkg/objectstore"
	"github.com/weberc2/blockfs/pkg/snapshot"
	. "github.com/weberc2/blockfs/pkg/types"
)

func main() {
	app := cli.App{
		Name:        "fsctl",
		Description: "inspect and modify blockfs device images directly",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "path to the device image",
				EnvVars: []string{"BLOCKFS_DEVICE_PATH"},
				Value:   "blockfs.img",
			},
			&cli.IntFlag{
				Name:  "owner",
				Usage: "uid recorded on new entries",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "permissions",
				Usage: "permission bits recorded on new entries",
				Value: 0x66,
			},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "create and format a new device image",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:  "blocks",
					Usage: "number of 512-byte blocks in the image",
					Value: uint(DeviceBlocks),
				},
			},
			Action: func(ctx *cli.Context) error {
				config := filesystem.DefaultConfig(ctx.String("device"))
				config.BlockCount = Block(ctx.Uint("blocks"))
				if err := config.Validate(); err != nil {
					return err
				}
				if err := device.Create(
					config.DevicePath,
					config.BlockCount,
				); err != nil {
					return err
				}
				fs, err := filesystem.Open(config)
				if err != nil {
					return err
				}
				return fs.Unmount()
			},
		}, {
			Name:        "ls",
			Aliases:     []string{"list"},
			Description: "list a directory's entries with their metadata",
			ArgsUsage:   "PATH",
			Action: withHandle(func(fs *filesystem.FileSystem, h filesystem.Handle, ctx *cli.Context) error {
				infos, err := fs.ListInfo(h)
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Printf(
						"%-9s %4d %04o %8d %s %s\n",
						info.Metadata.Type,
						info.Metadata.Owner,
						info.Metadata.Permissions,
						info.Metadata.Size,
						info.Metadata.Modified.Format("2006-01-02 15:04:05"),
						info.Name,
					)
				}
				return nil
			}),
		}, {
			Name:        "stat",
			Description: "print an entry's metadata as JSON",
			ArgsUsage:   "PATH",
			Action: withHandle(func(fs *filesystem.FileSystem, h filesystem.Handle, ctx *cli.Context) error {
				md, err := fs.Stat(h)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(md, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling metadata to JSON: %w", err)
				}
				if _, err := fmt.Printf("%s\n", data); err != nil {
					return fmt.Errorf("writing JSON to stdout: %w", err)
				}
				return nil
			}),
		}, {
			Name:        "cat",
			Aliases:     []string{"read"},
			Description: "copy a file's contents to stdout",
			ArgsUsage:   "PATH",
			Action: withHandle(func(fs *filesystem.FileSystem, h filesystem.Handle, ctx *cli.Context) error {
				var buf [BlockSize]byte
				for offset := Byte(0); ; {
					n, err := fs.Read(h, offset, buf[:])
					if err != nil {
						return err
					}
					if n == 0 {
						return nil
					}
					if _, err := os.Stdout.Write(buf[:n]); err != nil {
						return fmt.Errorf("writing to stdout: %w", err)
					}
					offset += n
				}
			}),
		}, {
			Name:        "write",
			Description: "write stdin into a file at the given offset",
			ArgsUsage:   "PATH",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  "offset",
					Usage: "byte offset to start writing at; clamped to the file size",
				},
			},
			Action: withHandle(func(fs *filesystem.FileSystem, h filesystem.Handle, ctx *cli.Context) error {
				data, err := ioutil.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				n, err := fs.Write(h, Byte(ctx.Int64("offset")), data)
				if err != nil {
					return err
				}
				if Byte(len(data)) != n {
					return fmt.Errorf(
						"wrote `%d` of `%d` bytes: %w",
						n,
						len(data),
						DeviceExhaustedErr,
					)
				}
				return nil
			}),
		}, {
			Name:        "mkdir",
			Description: "create an empty directory",
			ArgsUsage:   "PATH",
			Action:      addAction(ElementTypeDirectory),
		}, {
			Name:        "touch",
			Description: "create an empty file",
			ArgsUsage:   "PATH",
			Action:      addAction(ElementTypeFile),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove", "delete"},
			Description: "remove a file or a directory and everything below it",
			ArgsUsage:   "PATH",
			Action: withFS(func(fs *filesystem.FileSystem, ctx *cli.Context) error {
				return fs.Remove(ctx.Args().First())
			}),
		}, {
			Name:        "df",
			Description: "report free space",
			Action: withFS(func(fs *filesystem.FileSystem, ctx *cli.Context) error {
				fmt.Printf(
					"%d blocks free (%d bytes)\n",
					fs.FreeBlockCount(),
					fs.FreeSpace(),
				)
				return nil
			}),
		}, {
			Name:        "snapshot",
			Description: "ship device images to and from S3",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "bucket",
					Usage:    "the S3 bucket holding snapshots",
					EnvVars:  []string{"BLOCKFS_SNAPSHOT_BUCKET"},
					Required: true,
				},
			},
			Subcommands: []*cli.Command{{
				Name:        "push",
				Description: "upload the (unmounted) device image under a label",
				ArgsUsage:   "LABEL",
				Action: withSnapshots(func(s *snapshot.Snapshots, ctx *cli.Context) error {
					key, err := s.Push(ctx.Args().First(), ctx.String("device"))
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				}),
			}, {
				Name:        "pull",
				Description: "download a snapshot to a new device image",
				ArgsUsage:   "KEY DESTINATION",
				Action: withSnapshots(func(s *snapshot.Snapshots, ctx *cli.Context) error {
					return s.Pull(ctx.Args().Get(0), ctx.Args().Get(1))
				}),
			}, {
				Name:        "list",
				Aliases:     []string{"ls"},
				Description: "list the snapshots stored under a label",
				ArgsUsage:   "LABEL",
				Action: withSnapshots(func(s *snapshot.Snapshots, ctx *cli.Context) error {
					keys, err := s.List(ctx.Args().First())
					if err != nil {
						return err
					}
					for _, key := range keys {
						fmt.Println(key)
					}
					return nil
				}),
			}, {
				Name:        "delete",
				Aliases:     []string{"rm"},
				Description: "delete a snapshot and its checksum",
				ArgsUsage:   "KEY",
				Action: withSnapshots(func(s *snapshot.Snapshots, ctx *cli.Context) error {
					return s.Delete(ctx.Args().First())
				}),
			}},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withFS mounts the device for the duration of one command. The device must
// already exist; use `mkfs` to create one.
func withFS(f func(*filesystem.FileSystem, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		config := filesystem.DefaultConfig(ctx.String("device"))
		if _, err := os.Stat(config.DevicePath); err != nil {
			return fmt.Errorf("opening device: %w", err)
		}
		fs, err := filesystem.Open(config)
		if err != nil {
			return err
		}
		err = f(fs, ctx)
		if unmountErr := fs.Unmount(); unmountErr != nil && err == nil {
			err = unmountErr
		}
		return err
	}
}

func withHandle(
	f func(*filesystem.FileSystem, filesystem.Handle, *cli.Context) error,
) cli.ActionFunc {
	return withFS(func(fs *filesystem.FileSystem, ctx *cli.Context) error {
		h, err := fs.Open(ctx.Args().First())
		if err != nil {
			return err
		}
		defer fs.Close(h)
		return f(fs, h, ctx)
	})
}

func addAction(et ElementType) cli.ActionFunc {
	return withFS(func(fs *filesystem.FileSystem, ctx *cli.Context) error {
		return fs.Add(
			ctx.Args().First(),
			et,
			int32(ctx.Int("owner")),
			int32(ctx.Int("permissions")),
		)
	})
}

func withSnapshots(f func(*snapshot.Snapshots, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		sess, err := session.NewSession()
		if err != nil {
			return fmt.Errorf("creating AWS session: %w", err)
		}
		return f(
			&snapshot.Snapshots{
				Store: &objectstore.GzipObjectStore{
					ObjectStore: &objectstore.S3ObjectStore{Client: s3.New(sess)},
				},
				Bucket: ctx.String("bucket"),
			},
			ctx,
		)
	}
}
