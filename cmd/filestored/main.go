// Filestored is the file storage server daemon. It keeps translation
// project files, their converted work files, and the content-addressed
// dedup cache in a blob store, and exposes the staging, promotion, and
// lookup operations over a REST API.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	raven "github.com/getsentry/raven-go"

	"github.com/catbridge/filestorage/server"
)

// Config is the project configuration file format, in TOML.
type Config struct {
	// Port is the port number the API listens on. Defaults to 14000.
	Port string

	// PProfPort enables the pprof server on the given port.
	PProfPort string

	// Storage locates the blob store. Either a local directory path or
	// "s3://host/bucket/prefix". Empty keeps everything in memory.
	Storage string

	// Mysql is a dial command for a MySQL side-index database, e.g.
	// "user:password@tcp(localhost:5555)/dbname". When empty a
	// lightweight internal database inside DataDir is used.
	Mysql string

	// DataDir is the local scratch directory: the internal database
	// and the default upload and zip staging areas live under it.
	DataDir string

	// UploadDir and ZipDir override the staging areas, which otherwise
	// default to subdirectories of DataDir.
	UploadDir string
	ZipDir    string

	// Tokens is the path to the API token list file. When empty every
	// caller is admitted.
	Tokens string

	// SentryDSN enables error reporting to Sentry.
	SentryDSN string

	// ForceVersion disables the cache short circuit so work files are
	// re-uploaded even when a cached copy exists.
	ForceVersion bool
}

func main() {
	var (
		configFile = flag.String("config", "", "path to configuration file")
		storage    = flag.String("storage", "", "location of the blob store (overrides config)")
		port       = flag.String("port", "", "port to listen on (overrides config)")
		showVer    = flag.Bool("version", false, "display version and exit")
	)
	flag.Parse()

	if *showVer {
		log.Printf("filestored version %s", server.Version)
		return
	}

	var config Config
	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &config); err != nil {
			log.Fatalf("Error reading configuration file: %s", err.Error())
		}
	}
	if *storage != "" {
		config.Storage = *storage
	}
	if *port != "" {
		config.Port = *port
	}

	if config.SentryDSN != "" {
		raven.SetDSN(config.SentryDSN)
	}

	s := parselocation(config.Storage, "")
	if s == nil {
		log.Fatalf("Cannot understand storage location %q", config.Storage)
	}

	var validator server.TokenDecoder
	if config.Tokens != "" {
		var err error
		validator, err = server.NewListDecoderFile(config.Tokens)
		if err != nil {
			log.Fatalf("Error reading token file %s: %s", config.Tokens, err.Error())
		}
	}

	srv := &server.RESTServer{
		PortNumber:   config.Port,
		PProfPort:    config.PProfPort,
		Store:        s,
		MySQL:        config.Mysql,
		DataDir:      config.DataDir,
		UploadDir:    config.UploadDir,
		ZipDir:       config.ZipDir,
		ForceVersion: config.ForceVersion,
		Validator:    validator,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Received interrupt, shutting down")
		srv.Stop()
	}()

	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
