package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/planner2d/base"
	"go.viam.com/planner2d/base/fake"
	"go.viam.com/planner2d/config"
	"go.viam.com/planner2d/lidar"
	"go.viam.com/planner2d/logging"
	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/planner"
	"go.viam.com/planner2d/utils"
	"go.viam.com/planner2d/visualize"
)

const statusInterval = time.Second

func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	if c.Bool(flagDebug) || (cfg != nil && cfg.Debug) {
		return logging.NewDebugLogger("planner2d")
	}
	return logging.NewLogger("planner2d")
}

// simulation is a planner wired to a simulated base and laser.
type simulation struct {
	cfg     *config.Config
	planner *planner.Planner
	base    *fake.Base
	scanner *lidar.SimulatedScanner
	logger  logging.Logger
}

func newSimulation(cfg *config.Config, logger logging.Logger) (*simulation, error) {
	b := fake.NewBase(cfg.Driver.Start.Pose(), logger.Sublogger("base"))
	ctrl, err := motion.NewController(cfg.Motion.ControllerConfig())
	if err != nil {
		return nil, err
	}
	p, err := planner.New(cfg.Planner, planner.Dependencies{
		Motion:  ctrl,
		Stopper: base.Stopper{Base: b},
	}, logger.Sublogger("planner"))
	if err != nil {
		return nil, err
	}
	if err := p.LoadMapFrom(cfg.Map.Loader(), cfg.Map.ImagePath); err != nil {
		return nil, err
	}
	scanner, err := lidar.NewSimulatedScanner(lidar.SimulatedConfig{
		Rays:     cfg.Driver.LidarRays,
		MaxRange: cfg.Driver.LidarRange,
	}, p.MapState(), b)
	if err != nil {
		return nil, err
	}
	for _, o := range cfg.Driver.ObstaclePoints() {
		scanner.AddObstacle(o)
	}
	mode, err := planner.ParseDisplayMode(cfg.Driver.DisplayMode)
	if err != nil {
		return nil, err
	}
	p.SetDisplayMode(mode)
	return &simulation{cfg: cfg, planner: p, base: b, scanner: scanner, logger: logger}, nil
}

// sense publishes the base pose and a fresh scan, as a localizer and a laser
// driver would.
func (s *simulation) sense(ctx context.Context) error {
	if err := s.planner.SetRobotPose(s.base.Pose()); err != nil {
		return err
	}
	scan, err := s.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	s.planner.SetSensorPoints(scan.Points())
	return nil
}

// drive runs planning cycles until the goal is reached, the cycle budget runs out
// or ctx is done.
func (s *simulation) drive(ctx context.Context, fast bool) error {
	period := s.cfg.Driver.Period()
	for i := 0; i < s.cfg.Driver.MaxCycles; i++ {
		res, err := s.planner.Step(ctx)
		if err != nil {
			return errors.Wrapf(err, "cycle %d", i)
		}
		if res.GoalReached {
			s.logger.Infow("goal reached", "cycles", i+1, "pose", s.base.Pose().String())
			return nil
		}
		linear, angular := base.VelocityVectors(res.Velocity)
		if err := s.base.SetVelocity(ctx, linear, angular, nil); err != nil {
			return err
		}
		s.base.Advance(period)
		if err := s.planner.SetRobotPose(s.base.Pose()); err != nil {
			return err
		}
		if fast {
			if err := s.sense(ctx); err != nil {
				return err
			}
			continue
		}
		if !goutils.SelectContextOrWait(ctx, period) {
			return ctx.Err()
		}
	}
	return errors.Errorf("goal not reached after %d cycles", s.cfg.Driver.MaxCycles)
}

func (s *simulation) close(ctx context.Context) error {
	return multierr.Combine(s.planner.Close(ctx), s.base.Close(ctx))
}

func runAction(c *cli.Context) error {
	cfg, err := config.Read(c.String(flagConfig), logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)
	sim, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}
	ctx := c.Context
	if err := sim.sense(ctx); err != nil {
		return err
	}
	if _, err := sim.planner.SetGoal(cfg.Driver.Goal.Pose()); err != nil {
		return err
	}
	fast := c.Bool(flagFast)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	status := utils.NewStoppableWorkers(runCtx, logger.Sublogger("status"), func(ctx context.Context) {
		for goutils.SelectContextOrWait(ctx, statusInterval) {
			pose, _ := sim.planner.RobotPose()
			logger.Infow("status", "state", sim.planner.State().String(), "pose", pose.World.String())
		}
	})
	defer status.Stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return sim.drive(gctx, fast)
	})
	if !fast {
		g.Go(func() error {
			for goutils.SelectContextOrWait(gctx, cfg.Driver.Period()) {
				if err := sim.sense(gctx); err != nil && gctx.Err() == nil {
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()
	if cfg.Driver.SnapshotPath != "" {
		snapErr := visualize.SavePNG(cfg.Driver.SnapshotPath, sim.planner.Snapshot(), visualize.OptionsFromConfig(cfg.Planner))
		err = multierr.Combine(err, snapErr)
	}
	return multierr.Combine(err, sim.close(context.Background()))
}

func renderAction(c *cli.Context) error {
	cfg, err := config.Read(c.String(flagConfig), logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	mode, err := planner.ParseDisplayMode(c.String(flagMode))
	if err != nil {
		return err
	}
	sim, err := newSimulation(cfg, newLogger(c, cfg))
	if err != nil {
		return err
	}
	sim.planner.SetDisplayActive(true)
	sim.planner.SetDisplayMode(mode)
	if err := sim.sense(c.Context); err != nil {
		return err
	}
	if _, err := sim.planner.Step(c.Context); err != nil {
		return err
	}
	out := c.Path(flagOut)
	if err := visualize.SavePNG(out, sim.planner.Snapshot(), visualize.OptionsFromConfig(sim.planner.Config())); err != nil {
		return err
	}
	sim.logger.Infow("rendered", "mode", mode.String(), "path", out)
	return sim.close(c.Context)
}
