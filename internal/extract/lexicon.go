package extract

import "strings"

// AliasPattern is one surface form of a lexicon entry. Strength expresses how
// unambiguously the phrase names the concept: "relative strength index" is
// certain, a bare "ma" much less so.
type AliasPattern struct {
	Phrase   string
	Strength float64
}

type paramDirection int

const (
	paramBefore paramDirection = iota
	paramAfter
)

// ParamRule describes how a numeric parameter attaches to a match. Direction
// and the unit-token allowlist encode the two shapes that dominate spoken
// strategy descriptions: "14 period RSI" (number before, unit words between)
// and "stop loss 2%" (number after, filler words between).
type ParamRule struct {
	Key       string
	Direction paramDirection
	// Units are the only tokens allowed between a preceding number and the
	// match. An empty gap always qualifies, which covers "20 EMA".
	Units []string
	// Percent restricts the rule to percent-flagged numbers.
	Percent bool
}

// LexiconEntry maps one canonical concept to its surface forms and parameter
// shapes. New vocabulary is added here, never as new matching code.
type LexiconEntry struct {
	Kind      Kind
	Canonical string
	Aliases   []AliasPattern
	Params    []ParamRule
	// DynamicKind marks rule entries whose entry/exit classification depends
	// on trigger words near the match.
	DynamicKind bool
}

var periodUnits = []string{"period", "periods", "length", "bar", "bars", "candle", "candles"}

var entryTriggers = map[string]bool{
	"enter": true, "entry": true, "buy": true, "long": true, "open": true,
}

var exitTriggers = map[string]bool{
	"exit": true, "sell": true, "close": true, "short": true,
}

func periodParam() []ParamRule {
	return []ParamRule{{Key: "period", Direction: paramBefore, Units: periodUnits}}
}

func indicator(canonical string, aliases ...AliasPattern) LexiconEntry {
	return LexiconEntry{Kind: KindIndicator, Canonical: canonical, Aliases: aliases, Params: periodParam()}
}

func alias(phrase string, strength float64) AliasPattern {
	return AliasPattern{Phrase: phrase, Strength: strength}
}

// timeframe builds an entry whose canonical name is the compact code the
// downstream consumer expects ("1h", "1d"). Aliases ending in a unit word get
// a plural variant generated automatically.
func timeframe(code string, phrases ...string) LexiconEntry {
	aliases := make([]AliasPattern, 0, len(phrases)*2)
	for _, phrase := range phrases {
		aliases = append(aliases, AliasPattern{Phrase: phrase, Strength: 1.0})
		for _, unit := range []string{"minute", "hour", "day", "week"} {
			if strings.HasSuffix(phrase, unit) {
				aliases = append(aliases, AliasPattern{Phrase: phrase + "s", Strength: 1.0})
				break
			}
		}
	}
	return LexiconEntry{Kind: KindTimeframe, Canonical: code, Aliases: aliases}
}

// defaultLexicon covers the vocabulary that recurs in retail strategy videos.
func defaultLexicon() []LexiconEntry {
	return []LexiconEntry{
		indicator("rsi", alias("rsi", 1.0), alias("relative strength index", 1.0), alias("relative strength", 0.8)),
		indicator("macd", alias("macd", 1.0)),
		indicator("moving average", alias("moving average", 1.0), alias("moving averages", 0.9), alias("ma", 0.5)),
		indicator("ema", alias("ema", 1.0), alias("exponential moving average", 1.0)),
		indicator("sma", alias("sma", 1.0), alias("simple moving average", 1.0)),
		indicator("wma", alias("wma", 1.0), alias("weighted moving average", 1.0)),
		indicator("bollinger bands", alias("bollinger bands", 1.0), alias("bollinger", 0.9)),
		indicator("stochastic", alias("stochastic", 1.0), alias("stochastic oscillator", 1.0)),
		indicator("atr", alias("atr", 1.0), alias("average true range", 1.0)),
		indicator("adx", alias("adx", 1.0)),
		indicator("vwap", alias("vwap", 1.0)),
		indicator("cci", alias("cci", 1.0), alias("commodity channel index", 1.0)),
		indicator("obv", alias("obv", 1.0), alias("on balance volume", 1.0)),
		indicator("supertrend", alias("supertrend", 1.0), alias("super trend", 0.9)),
		indicator("parabolic sar", alias("parabolic sar", 1.0)),
		indicator("ichimoku", alias("ichimoku", 1.0), alias("ichimoku cloud", 1.0)),
		indicator("keltner channel", alias("keltner channel", 1.0), alias("keltner", 0.9)),
		indicator("donchian channel", alias("donchian channel", 1.0), alias("donchian", 0.9)),
		indicator("fibonacci", alias("fibonacci", 1.0), alias("fib", 0.6)),
		indicator("momentum", alias("momentum", 0.6)),
		indicator("volume", alias("volume", 0.4)),

		{
			Kind:        KindEntryRule,
			Canonical:   "cross below",
			DynamicKind: true,
			Aliases: []AliasPattern{
				alias("crosses below", 1.0), alias("cross below", 1.0),
				alias("crossing below", 0.9), alias("crosses under", 0.9),
			},
			Params: []ParamRule{{Key: "threshold", Direction: paramAfter}},
		},
		{
			Kind:        KindEntryRule,
			Canonical:   "cross above",
			DynamicKind: true,
			Aliases: []AliasPattern{
				alias("crosses above", 1.0), alias("cross above", 1.0),
				alias("crossing above", 0.9), alias("crosses over", 0.9),
			},
			Params: []ParamRule{{Key: "threshold", Direction: paramAfter}},
		},
		{
			Kind:        KindEntryRule,
			Canonical:   "crossover",
			DynamicKind: true,
			Aliases:     []AliasPattern{alias("crossover", 0.8), alias("golden cross", 0.9)},
		},
		{
			Kind:        KindEntryRule,
			Canonical:   "breakout",
			DynamicKind: true,
			Aliases:     []AliasPattern{alias("breakout", 0.8), alias("breaks out", 0.8)},
			Params:      []ParamRule{{Key: "level", Direction: paramAfter}},
		},

		{
			Kind:      KindRiskParam,
			Canonical: "stop loss",
			Aliases:   []AliasPattern{alias("stop loss", 1.0), alias("stoploss", 1.0)},
			Params:    []ParamRule{{Key: "stop_loss_pct", Direction: paramAfter, Percent: true}},
		},
		{
			Kind:      KindRiskParam,
			Canonical: "take profit",
			Aliases:   []AliasPattern{alias("take profit", 1.0)},
			Params:    []ParamRule{{Key: "take_profit_pct", Direction: paramAfter, Percent: true}},
		},
		{
			Kind:      KindRiskParam,
			Canonical: "trailing stop",
			Aliases:   []AliasPattern{alias("trailing stop", 1.0)},
			Params:    []ParamRule{{Key: "trail_pct", Direction: paramAfter, Percent: true}},
		},
		{
			Kind:      KindRiskParam,
			Canonical: "risk per trade",
			Aliases:   []AliasPattern{alias("risk per trade", 1.0), alias("risk", 0.5)},
			Params:    []ParamRule{{Key: "risk_pct", Direction: paramAfter, Percent: true}},
		},
		{
			Kind:      KindRiskParam,
			Canonical: "position size",
			Aliases:   []AliasPattern{alias("position size", 0.9), alias("position sizing", 0.9)},
		},

		timeframe("1m", "1 minute", "one minute", "m1"),
		timeframe("5m", "5 minute", "m5"),
		timeframe("15m", "15 minute", "m15"),
		timeframe("30m", "30 minute", "m30"),
		timeframe("1h", "1 hour", "one hour", "hourly", "h1", "60 minute"),
		timeframe("4h", "4 hour", "h4"),
		timeframe("1d", "daily", "1 day", "d1"),
		timeframe("1w", "weekly", "1 week", "w1"),
	}
}
