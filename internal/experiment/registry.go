package experiment

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/config"
	"github.com/san-kum/detprop/internal/metrics"
	"github.com/san-kum/detprop/internal/track"
)

// Env is what an actor factory can draw on when the chain for one track is
// built.
type Env struct {
	Config   *config.Config
	Start    track.Parameters
	Log      zerolog.Logger
	Recorder *metrics.Recorder
}

// Factory builds a fresh actor for one track. A nil actor is left out of the
// chain.
type Factory func(env Env) actor.Actor

// Registry maps actor names to factories, in registration order.
type Registry struct {
	actors *orderedmap.OrderedMap[string, Factory]
}

func NewRegistry() *Registry {
	r := &Registry{actors: orderedmap.NewOrderedMap[string, Factory]()}

	r.actors.Set("path_limit", func(env Env) actor.Actor {
		if env.Config.Propagation.PathLimit <= 0 {
			return nil
		}
		return actor.PathLimit{Limit: env.Config.Propagation.PathLimit}
	})
	r.actors.Set("tracer", func(Env) actor.Actor { return actor.NewTracer(true) })
	r.actors.Set("modules", func(Env) actor.Actor { return actor.NewTracer(false) })
	r.actors.Set("steps", func(Env) actor.Actor { return &actor.StepRecorder{} })
	r.actors.Set("printer", func(env Env) actor.Actor {
		l := env.Log
		return actor.Printer{Log: &l}
	})
	r.actors.Set("metrics", func(env Env) actor.Actor {
		obs := metrics.Observer{metrics.NewMeanStep(), metrics.NewRejectionRate()}
		if b, ok := env.Config.ConstantField(); ok {
			if env.Config.Stepper.Kind == "line" {
				b = mgl64.Vec3{}
			}
			obs = append(obs, metrics.NewHelixDeviation(env.Start, b))
		}
		return obs
	})
	r.actors.Set("prometheus", func(env Env) actor.Actor {
		if env.Recorder == nil {
			return nil
		}
		return env.Recorder.Actor()
	})

	return r
}

// Register adds or replaces a factory. New names go to the end of the list.
func (r *Registry) Register(name string, f Factory) {
	r.actors.Set(name, f)
}

func (r *Registry) GetActor(name string, env Env) (actor.Actor, error) {
	fn, ok := r.actors.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown actor: %s", name)
	}
	return fn(env), nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.actors.Get(name)
	return ok
}

// ListActors returns the registered names in registration order.
func (r *Registry) ListActors() []string {
	return r.actors.Keys()
}
