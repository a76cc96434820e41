// Command vicimg is a thin CLI wrapper around the image package's
// operations, mapping *v9kfs.Error to exit codes (0 success, 1 user error,
// 2 I/O error, 3 corruption detected by verify).
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/image"
	"github.com/dargueta/v9kfs/volume"
)

func main() {
	app := cli.App{
		Name:  "vicimg",
		Usage: "Read and write Victor 9000 and IBM PC FAT12 disk images",
		Commands: []*cli.Command{
			listCommand,
			copyOutCommand,
			copyInCommand,
			mkdirCommand,
			deleteCommand,
			attrCommand,
			createCommand,
			verifyCommand,
			infoCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			log.Print(err)
			os.Exit(exitErr.ExitCode())
		}
		log.Fatal(err)
	}
}

// exitCodeFor maps a *v9kfs.Error to an exit code. I/O errors get 2;
// everything else the core can report is a user-facing condition (bad path,
// unsupported operation, corruption found while just trying to read) and
// gets 1. verify's own corruption-found case is handled separately, since it
// isn't itself an error return.
func exitCodeFor(err *v9kfs.Error) int {
	if err.Kind == v9kfs.KindIOError {
		return 2
	}
	return 1
}

func openHandle(path string) (*image.Handle, v9kfs.PathExpression, error) {
	expr, perr := v9kfs.ParsePathExpression(path)
	if perr != nil {
		return nil, expr, cli.Exit(perr.Error(), exitCodeFor(perr))
	}

	f, oerr := os.OpenFile(expr.ImagePath, os.O_RDWR, 0)
	if oerr != nil {
		return nil, expr, cli.Exit(oerr.Error(), 2)
	}

	h, ierr := image.Open(f, expr)
	if ierr != nil {
		return nil, expr, cli.Exit(ierr.Error(), exitCodeFor(ierr))
	}
	return h, expr, nil
}

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "List directory contents, or a hard disk's partition table",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "recursive"},
	},
	Action: func(c *cli.Context) error {
		h, expr, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		entries, lerr := h.List(expr.Components, c.Bool("recursive"))
		if lerr != nil {
			return cli.Exit(lerr.Error(), exitCodeFor(lerr))
		}
		for _, e := range entries {
			fmt.Printf("%-12s %10d\n", e.Name, e.Size)
		}
		return nil
	},
}

var copyOutCommand = &cli.Command{
	Name:      "copyout",
	Usage:     "Extract a file from the image",
	ArgsUsage: "IMAGE_PATH DEST_FILE",
	Action: func(c *cli.Context) error {
		h, expr, err := openHandle(c.Args().Get(0))
		if err != nil {
			return err
		}
		dest, oerr := os.Create(c.Args().Get(1))
		if oerr != nil {
			return cli.Exit(oerr.Error(), 2)
		}
		defer dest.Close()

		if cerr := h.CopyOut(expr.Components, dest); cerr != nil {
			return cli.Exit(cerr.Error(), exitCodeFor(cerr))
		}
		return nil
	},
}

var copyInCommand = &cli.Command{
	Name:      "copyin",
	Usage:     "Insert a file into the image",
	ArgsUsage: "SRC_FILE IMAGE_PATH",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "overwrite"},
	},
	Action: func(c *cli.Context) error {
		src, oerr := os.Open(c.Args().Get(0))
		if oerr != nil {
			return cli.Exit(oerr.Error(), 2)
		}
		defer src.Close()
		info, serr := src.Stat()
		if serr != nil {
			return cli.Exit(serr.Error(), 2)
		}

		h, expr, err := openHandle(c.Args().Get(1))
		if err != nil {
			return err
		}

		now := time.Now()
		cerr := h.CopyIn(src, uint32(info.Size()), expr.Components, c.Bool("overwrite"), v9kfs.AttrArchive, now)
		if cerr != nil {
			return cli.Exit(cerr.Error(), exitCodeFor(cerr))
		}
		return flushOrExit(h)
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "Create a subdirectory",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		h, expr, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		if merr := h.MakeDir(expr.Components, time.Now()); merr != nil {
			return cli.Exit(merr.Error(), exitCodeFor(merr))
		}
		return flushOrExit(h)
	},
}

var attrCommand = &cli.Command{
	Name:      "attr",
	Usage:     "Set or clear attribute bits on a file",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "set", Usage: "attribute letters to set (r, h, s, a)"},
		&cli.StringFlag{Name: "clear", Usage: "attribute letters to clear (r, h, s, a)"},
	},
	Action: func(c *cli.Context) error {
		setMask, serr := attrsFromLetters(c.String("set"))
		if serr != nil {
			return cli.Exit(serr.Error(), 1)
		}
		clearMask, cerr := attrsFromLetters(c.String("clear"))
		if cerr != nil {
			return cli.Exit(cerr.Error(), 1)
		}

		h, expr, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		if aerr := h.SetAttrs(expr.Components, setMask, clearMask); aerr != nil {
			return cli.Exit(aerr.Error(), exitCodeFor(aerr))
		}
		return flushOrExit(h)
	},
}

func attrsFromLetters(letters string) (v9kfs.Attrs, error) {
	var attrs v9kfs.Attrs
	for _, r := range letters {
		switch r {
		case 'r':
			attrs |= v9kfs.AttrReadOnly
		case 'h':
			attrs |= v9kfs.AttrHidden
		case 's':
			attrs |= v9kfs.AttrSystem
		case 'a':
			attrs |= v9kfs.AttrArchive
		default:
			return 0, fmt.Errorf("unknown attribute letter %q", r)
		}
	}
	return attrs, nil
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "Delete a file or empty subdirectory entry",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		h, expr, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		if derr := h.Delete(expr.Components); derr != nil {
			return cli.Exit(derr.Error(), exitCodeFor(derr))
		}
		return flushOrExit(h)
	},
}

var createCommand = &cli.Command{
	Name:      "create",
	Usage:     "Format a pristine image",
	ArgsUsage: "OUT_FILE VARIANT",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "label"},
	},
	Action: func(c *cli.Context) error {
		variant, ok := variantByFlagName(c.Args().Get(1))
		if !ok {
			return cli.Exit(fmt.Sprintf("unknown variant %q", c.Args().Get(1)), 1)
		}

		f, oerr := os.Create(c.Args().Get(0))
		if oerr != nil {
			return cli.Exit(oerr.Error(), 2)
		}
		defer f.Close()

		h, cerr := image.CreateImage(f, variant, c.String("label"), time.Now())
		if cerr != nil {
			return cli.Exit(cerr.Error(), exitCodeFor(cerr))
		}
		return flushOrExit(h)
	},
}

var verifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "Check a volume for filesystem corruption",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		h, _, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		report, verr := h.Verify()
		if verr != nil {
			return cli.Exit(verr.Error(), exitCodeFor(verr))
		}
		if !report.OK() {
			if merr := volume.VerifyMultiError(report); merr != nil {
				fmt.Fprintln(os.Stderr, merr)
			}
			return cli.Exit("", 3)
		}
		fmt.Println("OK")
		return nil
	},
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "Print volume statistics",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		h, _, err := openHandle(c.Args().First())
		if err != nil {
			return err
		}
		stats, ierr := h.Info()
		if ierr != nil {
			return cli.Exit(ierr.Error(), exitCodeFor(ierr))
		}
		fmt.Printf("variant: %s\n", stats.Geometry.FormatVariant)
		fmt.Printf("label: %s\n", stats.Label)
		fmt.Printf("files: %d  subdirs: %d\n", stats.FileCount, stats.SubdirectoryCount)
		fmt.Printf("clusters: %d used / %d total\n", stats.UsedClusters, stats.TotalClusters)
		return nil
	},
}

func flushOrExit(h *image.Handle) error {
	if err := h.Flush(); err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}
	return nil
}

func variantByFlagName(name string) (v9kfs.FormatVariant, bool) {
	switch name {
	case "victor-ss":
		return v9kfs.FormatVictorSS, true
	case "victor-ds":
		return v9kfs.FormatVictorDS, true
	case "ibm-360":
		return v9kfs.FormatIbmPc360, true
	case "ibm-720":
		return v9kfs.FormatIbmPc720, true
	case "ibm-1.2m":
		return v9kfs.FormatIbmPc12M, true
	case "ibm-1.44m":
		return v9kfs.FormatIbmPc144M, true
	default:
		return v9kfs.FormatUnknown, false
	}
}
