package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/a-bouts/nav-sim/api"
	"github.com/a-bouts/nav-sim/land"
	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/race"
	"github.com/a-bouts/nav-sim/sim"
	"github.com/a-bouts/nav-sim/wind"
	"github.com/a-bouts/nav-sim/xmpp"
)

func initLogger(level string, file string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithError(err).Warnf("Unknown log level '%s', using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if file != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    64, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}))
	}
}

func main() {

	fs := flag.NewFlagSet("nav-sim", flag.ExitOnError)
	var (
		listen       = fs.String("listen", ":8888", "http listen address")
		windDir      = fs.String("wind-dir", "winds", "directory of wind sources")
		windRefresh  = fs.Uint64("wind-refresh", 15, "wind directory rescan period, in seconds")
		windScale    = fs.Float64("wind-scale", wind.DefaultScale, "wind raster channel scale, in m/s")
		polarsDir    = fs.String("polars-dir", "polars", "directory of polar tables")
		coursesDir   = fs.String("courses-dir", "courses", "directory of courses")
		landFile     = fs.String("land-file", "", "land mask file, none if empty")
		tickRate     = fs.Duration("tick-rate", 100*time.Millisecond, "session tick period")
		logLevel     = fs.String("log-level", "info", "debug, info, warn or error")
		logFile      = fs.String("log-file", "", "rotated log file, stderr only if empty")
		cpuprofile   = fs.Bool("cpuprofile", false, "write a cpu profile on exit")
		xmppHost     = fs.String("xmpp-host", "", "")
		xmppJid      = fs.String("xmpp-jid", "", "")
		xmppPassword = fs.String("xmpp-password", "", "")
		xmppTo       = fs.String("xmpp-to", "", "")
		_            = fs.String("config", "", "config file")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarNoPrefix(),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		log.WithError(err).Fatal("Error parsing flags")
	}

	initLogger(*logLevel, *logFile)

	if *cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.NoShutdownHook).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var l *land.Land
	if *landFile != "" {
		log.Info("Load lands")
		var err error
		if l, err = land.InitLand(*landFile); err != nil {
			log.WithError(err).Fatal("Error loading lands")
		}
	}

	catalog := wind.NewCatalog(*windDir)
	if err := catalog.Refresh(); err != nil {
		log.WithError(err).Error("Error loading winds")
	}
	if err := catalog.Schedule(*windRefresh); err != nil {
		log.WithError(err).Fatal("Error scheduling wind refresh")
	}
	defer catalog.Close()

	races := race.NewRaces(*coursesDir)
	if err := races.Reload(); err != nil {
		log.WithError(err).Fatal("Error loading courses")
	}

	var notifier sim.Notifier
	x := xmpp.Xmpp{Config: xmpp.Config{Host: *xmppHost, Jid: *xmppJid, Password: *xmppPassword, To: *xmppTo}}
	if x.Config.Enabled() {
		notifier = x
	}

	handler := api.InitServer(ctx, api.Config{
		Land:     l,
		Polars:   polar.NewRegistry(*polarsDir),
		Races:    races,
		Windows:  catalog,
		Loader:   wind.FileLoader{Scale: *windScale},
		Notifier: notifier,
		TickRate: *tickRate,
	})

	srv := &http.Server{Addr: *listen, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Infof("Start server on '%s'", *listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server stopped")
	}
}
