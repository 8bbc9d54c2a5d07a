// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"net/http/pprof"
	"runtime"

	"github.com/Netflix/go-env"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// runtimeSettings are the profiling knobs read from the environment.
// A negative value leaves the runtime default untouched.
//
// https://golang.org/pkg/runtime/#SetBlockProfileRate
// https://golang.org/pkg/runtime/#SetMutexProfileFraction
type runtimeSettings struct {
	BlockProfileRate     int `env:"BLOCK_PROFILE_RATE,default=-1"`
	MutexProfileFraction int `env:"MUTEX_PROFILE_FRACTION,default=-1"`
}

func loadRuntimeSettings(environ []string) (settings runtimeSettings, err error) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return settings, errors.Wrap(err, "failed to read environment")
	}
	if err = env.Unmarshal(es, &settings); err != nil {
		return settings, errors.Wrap(err, "failed to parse runtime settings")
	}
	return settings, nil
}

// setRuntimeConfig applies the profiling settings of environ
func setRuntimeConfig(environ []string) error {
	settings, err := loadRuntimeSettings(environ)
	if err != nil {
		return err
	}
	if settings.BlockProfileRate >= 0 {
		runtime.SetBlockProfileRate(settings.BlockProfileRate)
		log.Infof("SetBlockProfileRate to %d", settings.BlockProfileRate)
	}
	if settings.MutexProfileFraction >= 0 {
		runtime.SetMutexProfileFraction(settings.MutexProfileFraction)
		log.Infof("SetMutexProfileFraction to %d", settings.MutexProfileFraction)
	}
	return nil
}

// addProfilerHandlers adds debug pprof handlers, named profiles such as
// heap or block are served by the index
func addProfilerHandlers(router *mux.Router) {
	sub := router.PathPrefix("/debug/pprof").Subrouter()
	sub.HandleFunc("/cmdline", pprof.Cmdline)
	sub.HandleFunc("/profile", pprof.Profile)
	sub.HandleFunc("/symbol", pprof.Symbol)
	sub.HandleFunc("/trace", pprof.Trace)
	sub.PathPrefix("/").HandlerFunc(pprof.Index)
}
