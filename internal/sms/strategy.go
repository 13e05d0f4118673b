package sms

import (
	"fmt"
	"math/rand/v2"
)

// Strategy reorders candidate gateway ids before dispatch. Implementations
// must not modify their argument.
type Strategy func(ids []string) []string

const (
	StrategyOrder  = "order"
	StrategyRandom = "random"
)

// OrderStrategy keeps the given order.
func OrderStrategy(ids []string) []string {
	return append([]string(nil), ids...)
}

// RandomStrategy returns the ids in a random order.
func RandomStrategy(ids []string) []string {
	out := append([]string(nil), ids...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// StrategyByName returns the built-in strategy called name. An empty name
// selects OrderStrategy.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyOrder:
		return OrderStrategy, nil
	case StrategyRandom:
		return RandomStrategy, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: order, random)", name)
	}
}
