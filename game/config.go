package game

import (
	"errors"
	"fmt"
	"time"

	"arena/game/vector"
)

// ErrInvalidConfig は設定値が不変条件を満たさない場合のエラーです。
var ErrInvalidConfig = errors.New("game: invalid config")

// Config はシミュレーションの数値パラメータです。
// 距離はワールド座標 [0,1]、速度は 1 秒あたりのワールド座標、時間はミリ秒です。
type Config struct {
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"16ms"`

	World     WorldConfig     `envPrefix:"WORLD_"`
	Player    PlayerConfig    `envPrefix:"PLAYER_"`
	Bolt      BoltConfig      `envPrefix:"BOLT_"`
	Score     ScoreConfig     `envPrefix:"SCORE_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Blackhole BlackholeConfig `envPrefix:"BLACKHOLE_"`
	Shockwave ShockwaveConfig `envPrefix:"SHOCKWAVE_"`
}

type WorldConfig struct {
	// GraveyardTTL は tombstone を記憶しておく時間です。過ぎた後に届いた古いイベントは集約を作り直します。
	GraveyardTTL int64 `env:"GRAVEYARD_TTL" envDefault:"60000"`
	// BarrierThreshold は船と障壁の接触判定距離です。
	BarrierThreshold float64 `env:"BARRIER_THRESHOLD" envDefault:"0.01"`
	// Maze が false の場合、障壁を配置しません。
	Maze bool `env:"MAZE" envDefault:"true"`
}

type PlayerConfig struct {
	MaxSpeed float64 `env:"MAX_SPEED" envDefault:"0.4"`
	// MaxImpulse は 1 回の move で予約できる速度変化の上限です。
	MaxImpulse float64 `env:"MAX_IMPULSE" envDefault:"0.1"`
	Damping    float64 `env:"DAMPING" envDefault:"-1.2"`
	// MinDamping は set-damping-factor で指定できる最も強い減衰です。
	MinDamping     float64 `env:"MIN_DAMPING" envDefault:"-6"`
	MaxAngularStep float64 `env:"MAX_ANGULAR_STEP" envDefault:"0.35"`
	Radius         float64 `env:"RADIUS" envDefault:"0.015"`
	MaxBolts       int     `env:"MAX_BOLTS" envDefault:"4"`
	Skins          int     `env:"SKINS" envDefault:"8"`
	// SpawnMode は "random" または "fixed" です。
	SpawnMode    string  `env:"SPAWN_MODE" envDefault:"random"`
	SpawnX       float64 `env:"SPAWN_X" envDefault:"0.5"`
	SpawnY       float64 `env:"SPAWN_Y" envDefault:"0.5"`
	StallTimeout int64   `env:"STALL_TIMEOUT" envDefault:"120000"`
}

type BoltConfig struct {
	Speed       float64 `env:"SPEED" envDefault:"0.6"`
	MaxDuration int64   `env:"MAX_DURATION" envDefault:"2000"`
	Radius      float64 `env:"RADIUS" envDefault:"0.004"`
	Inertia     bool    `env:"INERTIA" envDefault:"true"`
	// InertiaSame と InertiaOpposing は船の速度の発射方向成分に掛ける係数です。
	InertiaSame     float64 `env:"INERTIA_SAME" envDefault:"0.8"`
	InertiaOpposing float64 `env:"INERTIA_OPPOSING" envDefault:"0.3"`
	// InertiaReject は発射方向に直交する成分に掛ける係数です。
	InertiaReject float64 `env:"INERTIA_REJECT" envDefault:"0.5"`
}

type ScoreConfig struct {
	TopN       int `env:"TOP_N" envDefault:"10"`
	KillPoints int `env:"KILL_POINTS" envDefault:"1"`
}

type SchedulerConfig struct {
	Window        time.Duration `env:"WINDOW" envDefault:"3m"`
	ReplayWindows int           `env:"REPLAY_WINDOWS" envDefault:"4"`
}

type BlackholeConfig struct {
	Probability  float64 `env:"PROBABILITY" envDefault:"0.35"`
	Radius       float64 `env:"RADIUS" envDefault:"0.25"`
	EventHorizon float64 `env:"EVENT_HORIZON" envDefault:"0.02"`
	Gravity      float64 `env:"GRAVITY" envDefault:"0.00002"`
	Duration     int64   `env:"DURATION" envDefault:"60000"`
	// EndShortening は終了時刻を Duration より手前にずらす量です。
	EndShortening       int64   `env:"END_SHORTENING" envDefault:"10000"`
	TeleportProbability float64 `env:"TELEPORT_PROBABILITY" envDefault:"0.5"`
}

type ShockwaveConfig struct {
	Radius   float64 `env:"RADIUS" envDefault:"0.12"`
	Strength float64 `env:"STRENGTH" envDefault:"0.5"`
	Duration int64   `env:"DURATION" envDefault:"600"`
	// ElapsedPadding は波面の半径計算で経過時間に足す量です。
	ElapsedPadding int64 `env:"ELAPSED_PADDING" envDefault:"50"`
}

// DefaultConfig は環境変数の既定値と同じ設定を返します。
func DefaultConfig() Config {
	return Config{
		TickInterval: 16 * time.Millisecond,
		World: WorldConfig{
			GraveyardTTL:     60000,
			BarrierThreshold: 0.01,
			Maze:             true,
		},
		Player: PlayerConfig{
			MaxSpeed:       0.4,
			MaxImpulse:     0.1,
			Damping:        -1.2,
			MinDamping:     -6,
			MaxAngularStep: 0.35,
			Radius:         0.015,
			MaxBolts:       4,
			Skins:          8,
			SpawnMode:      SpawnRandom,
			SpawnX:         0.5,
			SpawnY:         0.5,
			StallTimeout:   120000,
		},
		Bolt: BoltConfig{
			Speed:           0.6,
			MaxDuration:     2000,
			Radius:          0.004,
			Inertia:         true,
			InertiaSame:     0.8,
			InertiaOpposing: 0.3,
			InertiaReject:   0.5,
		},
		Score: ScoreConfig{TopN: 10, KillPoints: 1},
		Scheduler: SchedulerConfig{
			Window:        3 * time.Minute,
			ReplayWindows: 4,
		},
		Blackhole: BlackholeConfig{
			Probability:         0.35,
			Radius:              0.25,
			EventHorizon:        0.02,
			Gravity:             0.00002,
			Duration:            60000,
			EndShortening:       10000,
			TeleportProbability: 0.5,
		},
		Shockwave: ShockwaveConfig{
			Radius:         0.12,
			Strength:       0.5,
			Duration:       600,
			ElapsedPadding: 50,
		},
	}
}

const (
	SpawnRandom = "random"
	SpawnFixed  = "fixed"
)

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.TickInterval > 0, "tick interval %v", c.TickInterval)
	check(c.World.GraveyardTTL >= 0, "graveyard ttl %d", c.World.GraveyardTTL)
	check(c.Player.MaxSpeed > 0, "player max speed %v", c.Player.MaxSpeed)
	check(c.Player.Damping <= 0, "player damping %v", c.Player.Damping)
	check(c.Player.MinDamping <= c.Player.Damping, "player min damping %v", c.Player.MinDamping)
	check(c.Player.MaxBolts >= 0, "player max bolts %d", c.Player.MaxBolts)
	check(c.Player.Skins > 0, "player skins %d", c.Player.Skins)
	check(c.Player.SpawnMode == SpawnRandom || c.Player.SpawnMode == SpawnFixed, "spawn mode %q", c.Player.SpawnMode)
	check(c.Bolt.Speed > 0, "bolt speed %v", c.Bolt.Speed)
	check(c.Bolt.MaxDuration >= 0, "bolt max duration %d", c.Bolt.MaxDuration)
	check(c.Score.TopN > 0, "score top n %d", c.Score.TopN)
	check(c.Scheduler.Window > 0 && c.Scheduler.Window <= time.Hour, "scheduler window %v", c.Scheduler.Window)
	check(c.Scheduler.ReplayWindows >= 0, "scheduler replay windows %d", c.Scheduler.ReplayWindows)
	check(c.Blackhole.Probability >= 0 && c.Blackhole.Probability <= 1, "blackhole probability %v", c.Blackhole.Probability)
	check(c.Blackhole.EventHorizon < c.Blackhole.Radius, "blackhole event horizon %v >= radius %v", c.Blackhole.EventHorizon, c.Blackhole.Radius)
	check(c.Blackhole.EndShortening >= 0 && c.Blackhole.EndShortening < c.Blackhole.Duration, "blackhole end shortening %d", c.Blackhole.EndShortening)
	check(c.Shockwave.Duration > 0, "shockwave duration %d", c.Shockwave.Duration)
	check(c.Shockwave.ElapsedPadding >= 0, "shockwave elapsed padding %d", c.Shockwave.ElapsedPadding)

	return errors.Join(errs...)
}

func (c PlayerConfig) motion() vector.Configuration {
	return vector.Configuration{
		Boundary:     vector.BoundaryBounce,
		MaxMagnitude: c.MaxSpeed,
		Damping:      c.Damping,
	}
}

func (c BoltConfig) motion() vector.Configuration {
	return vector.Configuration{Boundary: vector.BoundaryIgnore}
}
