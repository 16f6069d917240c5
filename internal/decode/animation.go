package decode

import (
	"context"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeAnimations(ctx context.Context, report task.Progress) error {
	c := s.c
	out := make([]*scene.Clip, len(c.Doc.Animations))
	step := progress(report, len(out))

	for i, a := range c.Doc.Animations {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.clip(i, a)
		step(i)
	}
	return s.Clips.Set(out)
}

func (s *Stages) clip(i int, a gltf.Animation) *scene.Clip {
	out := &scene.Clip{Name: defaultName(a.Name, "animation", i)}
	for ci, ch := range a.Channels {
		channel, ok := s.channel(i, ci, ch, a.Samplers)
		if !ok {
			continue
		}
		if n := len(channel.Times); n > 0 && channel.Times[n-1] > out.Duration {
			out.Duration = channel.Times[n-1]
		}
		out.Channels = append(out.Channels, channel)
	}
	return out
}

func (s *Stages) channel(ai, ci int, ch gltf.Channel, samplers []gltf.AnimationSampler) (scene.Channel, bool) {
	c := s.c
	var out scene.Channel

	// Channels without a node target belong to extensions.
	if ch.Target.Node == nil {
		return out, false
	}
	target := lookup(c, StageAnimation, ai, "channel target node", *ch.Target.Node, s.Nodes.Get())
	if target == nil {
		return out, false
	}
	if !c.index(StageAnimation, ai, "channel sampler", ch.Sampler, len(samplers)) {
		return out, false
	}
	sm := samplers[ch.Sampler]

	out.Target = target
	out.TargetIndex = *ch.Target.Node
	out.Path = scene.Path(ch.Target.Path)
	switch sm.Interpolation {
	case "", "LINEAR", "STEP", "CUBICSPLINE":
		out.Interpolation = scene.ParseInterpolation(sm.Interpolation)
	default:
		c.warnf(gltf.KindInvalidData, StageAnimation, ai, "channel %d: unknown interpolation %q", ci, sm.Interpolation)
		return out, false
	}

	accessors := s.Accessors.Get()
	input := lookup(c, StageAnimation, ai, "sampler input", sm.Input, accessors)
	output := lookup(c, StageAnimation, ai, "sampler output", sm.Output, accessors)
	if input == nil || output == nil {
		return out, false
	}
	if input.Type != gltf.Scalar || input.ComponentType != gltf.Float {
		c.warnf(gltf.KindInvalidData, StageAnimation, ai, "channel %d: input must be float SCALAR", ci)
		return out, false
	}
	out.Times = input.Floats()
	out.Values = output.Floats()

	keys := len(out.Times)
	mult := 1
	if out.Interpolation == scene.CubicSpline {
		mult = 3
	}

	switch out.Path {
	case scene.PathTranslation, scene.PathScale:
		out.Width = 3
	case scene.PathRotation:
		out.Width = 4
	case scene.PathWeights:
		if keys == 0 || len(out.Values)%(keys*mult) != 0 {
			c.warnf(gltf.KindInvalidData, StageAnimation, ai, "channel %d: %d weight values for %d keys", ci, len(out.Values), keys)
			return out, false
		}
		out.Width = len(out.Values) / (keys * mult)
	default:
		c.warnf(gltf.KindInvalidData, StageAnimation, ai, "channel %d: unknown path %q", ci, ch.Target.Path)
		return out, false
	}

	if len(out.Values) != keys*out.Width*mult {
		c.warnf(gltf.KindInvalidData, StageAnimation, ai,
			"channel %d: %d values, want %d", ci, len(out.Values), keys*out.Width*mult)
		return out, false
	}
	for k := 1; k < keys; k++ {
		if out.Times[k] < out.Times[k-1] {
			c.warnf(gltf.KindInvalidData, StageAnimation, ai, "channel %d: key times are not ascending", ci)
			return out, false
		}
	}
	return out, true
}
