// pstored is the PermaStore server. It keeps a registry of named files,
// each a sequence of uploaded nodes, and serves them over a REST API.
//
// Settings are taken from a TOML configuration file:
//
//	pstored -config-file settings.toml
//
// An example settings file:
//
//	Port = "14000"
//	PProfPort = "14001"
//	Storage = "/var/pstore"
//	Tokenfile = "/etc/pstore/tokens"
//	Mysql = "user:pass@tcp(localhost:3306)/bids"
//	SuffixAuth = true
//	MaxNodeSize = 64000
//	SentryDSN = ""
//
// Storage may also be an S3 location such as "s3://localhost:9000/bucket".
// Without a configuration file the command line flags apply, with the
// same meanings.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	raven "github.com/getsentry/raven-go"

	"github.com/permastore/pstore/server"
)

type config struct {
	Port        string
	PProfPort   string
	Storage     string
	Tokenfile   string
	Mysql       string
	SuffixAuth  bool
	MaxNodeSize int64
	SentryDSN   string
}

func main() {
	var (
		configFile = flag.String("config-file", "", "location of the configuration file")
		port       = flag.String("port", "14000", "port to listen on")
		pprofPort  = flag.String("pprof-port", "", "port for the pprof handlers, empty disables them")
		storage    = flag.String("storage", "", "location files are stored at, empty keeps them in memory")
		tokenfile  = flag.String("token-file", "", "file mapping API tokens to users")
		mysql      = flag.String("mysql", "", "connection string for a MySQL mirror of the name auctions")
		noSuffix   = flag.Bool("no-suffix-auth", false, "make dotted names first come, first served")
	)
	flag.Parse()

	c := config{
		Port:       *port,
		PProfPort:  *pprofPort,
		Storage:    *storage,
		Tokenfile:  *tokenfile,
		Mysql:      *mysql,
		SuffixAuth: !*noSuffix,
	}
	if *configFile != "" {
		// the configuration file wins over any flags
		if _, err := toml.DecodeFile(*configFile, &c); err != nil {
			log.Fatalln("Error reading configuration file:", err)
		}
	}

	if c.SentryDSN != "" {
		raven.SetDSN(c.SentryDSN)
		raven.SetRelease(server.Version)
	}

	var validator server.TokenDecoder
	if c.Tokenfile != "" {
		var err error
		validator, err = server.NewListDecoderFile(c.Tokenfile)
		if err != nil {
			log.Fatalln("Error parsing token file:", err)
		}
	}

	s := &server.RESTServer{
		PortNumber:        c.Port,
		PProfPort:         c.PProfPort,
		StorageDir:        localpath(c.Storage),
		FileStore:         parselocation(c.Storage, "files"),
		MySQL:             c.Mysql,
		DisableSuffixAuth: !c.SuffixAuth,
		MaxNodeSize:       c.MaxNodeSize,
		Validator:         validator,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Received signal, stopping")
		s.Stop()
	}()

	err := s.Run()
	if err != nil {
		log.Println(err)
	}
}
