// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Library namespace to use (default: remote.user from config)",
	}
}

func modelsFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Collection to operate on, repeatable (default: sync.models from config)",
	}
}

// setupCommand handles setup operations for configuration and the local library.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the local library database and run migrations",
				Flags:  []cli.Flag{userFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// syncCommand handles mirroring the remote library.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror the remote library into the local store",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Bootstrap or load every model, then follow remote changes until interrupted",
				Flags:  []cli.Flag{userFlag(), modelsFlag()},
				Action: r.SyncRun,
			},
			{
				Name:   "load",
				Usage:  "Bootstrap or load every model once and report",
				Flags:  []cli.Flag{userFlag(), modelsFlag()},
				Action: r.SyncLoad,
			},
			{
				Name:  "status",
				Usage: "Show the watermark of every model",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncStatus,
			},
			{
				Name:   "reset",
				Usage:  "Drop watermarks so the next sync bootstraps from scratch",
				Flags:  []cli.Flag{userFlag(), modelsFlag()},
				Action: r.SyncReset,
			},
			{
				Name:   "flush",
				Usage:  "Deliver plays recorded while the remote was unreachable",
				Flags:  []cli.Flag{userFlag()},
				Action: r.SyncFlush,
			},
		},
	}
}

// libraryCommand lists the local copy of the library.
func libraryCommand(r *Runner) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		}
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse the local library",
		Commands: []*cli.Command{
			{
				Name:  "songs",
				Usage: "List songs",
				Flags: []cli.Flag{
					userFlag(),
					jsonFlag(),
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Order: library, liked, played or added",
						Value: "library",
					},
				},
				Action: r.LibrarySongs,
			},
			{
				Name:   "playlists",
				Usage:  "List playlists",
				Flags:  []cli.Flag{userFlag(), jsonFlag()},
				Action: r.LibraryPlaylists,
			},
			{
				Name:   "albums",
				Usage:  "List albums derived from song tags",
				Flags:  []cli.Flag{userFlag()},
				Action: r.LibraryAlbums,
			},
			{
				Name:   "artists",
				Usage:  "List artists",
				Flags:  []cli.Flag{userFlag()},
				Action: r.LibraryArtists,
			},
			{
				Name:   "genres",
				Usage:  "List genres",
				Flags:  []cli.Flag{userFlag()},
				Action: r.LibraryGenres,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV, Markdown or text",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or txt",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (default: derived from the playlist id)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// queueCommand drives the playback queue against a logging audio backend.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Build a playback queue from the local library",
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "Start a queue and print its order",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Queue a playlist by id",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Queue an artist's songs",
					},
					&cli.StringFlag{
						Name:  "genre",
						Usage: "Queue a genre",
					},
					&cli.IntFlag{
						Name:  "start",
						Usage: "Index of the first song to play",
					},
					&cli.BoolFlag{
						Name:  "shuffle",
						Usage: "Shuffle the queue (default: player.shuffle from config)",
					},
					&cli.StringFlag{
						Name:  "repeat",
						Usage: "none, repeat or repeat-one (default: player.repeat from config)",
					},
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Advance this many songs before printing",
					},
					&cli.BoolFlag{
						Name:  "record",
						Usage: "Report plays to the remote, storing them locally while it is unreachable",
					},
				},
				Action: r.QueuePreview,
			},
		},
	}
}
