package code

import (
	"strconv"
)

// Codes for operation responses
const (
	// general
	OK                uint32 = 0
	DecodeError       uint32 = 101
	InsufficientFunds uint32 = 102
	Unauthorized      uint32 = 103

	// rounds
	RoundNotInitialized   uint32 = 201
	MonotonicityViolation uint32 = 202

	// transcoders
	InvalidRate          uint32 = 301
	TranscoderNotFound   uint32 = 302
	TranscoderExists     uint32 = 303
	IneligibleCaller     uint32 = 304
	DuplicateRewardClaim uint32 = 305
	InsufficientStake    uint32 = 306
	PoolDepleted         uint32 = 307

	// delegators
	StakeShouldBePositive uint32 = 401
	DelegatorNotFound     uint32 = 402
)

type insufficientFunds struct {
	Code        string `json:"code,omitempty"`
	Address     string `json:"address,omitempty"`
	NeededValue string `json:"needed_value,omitempty"`
}

func NewInsufficientFunds(address, neededValue string) *insufficientFunds {
	return &insufficientFunds{Code: strconv.Itoa(int(InsufficientFunds)), Address: address, NeededValue: neededValue}
}

type unauthorized struct {
	Code   string `json:"code,omitempty"`
	Caller string `json:"caller,omitempty"`
}

func NewUnauthorized(caller string) *unauthorized {
	return &unauthorized{Code: strconv.Itoa(int(Unauthorized)), Caller: caller}
}

type roundNotInitialized struct {
	Code  string `json:"code,omitempty"`
	Round string `json:"round,omitempty"`
}

func NewRoundNotInitialized(round string) *roundNotInitialized {
	return &roundNotInitialized{Code: strconv.Itoa(int(RoundNotInitialized)), Round: round}
}

type monotonicityViolation struct {
	Code            string `json:"code,omitempty"`
	Address         string `json:"address,omitempty"`
	LastUpdateRound string `json:"last_update_round,omitempty"`
	RequestedRound  string `json:"requested_round,omitempty"`
}

func NewMonotonicityViolation(address, lastUpdateRound, requestedRound string) *monotonicityViolation {
	return &monotonicityViolation{Code: strconv.Itoa(int(MonotonicityViolation)), Address: address, LastUpdateRound: lastUpdateRound, RequestedRound: requestedRound}
}

type invalidRate struct {
	Code string `json:"code,omitempty"`
	Rate string `json:"rate,omitempty"`
}

func NewInvalidRate(rate string) *invalidRate {
	return &invalidRate{Code: strconv.Itoa(int(InvalidRate)), Rate: rate}
}

type transcoderNotFound struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewTranscoderNotFound(address string) *transcoderNotFound {
	return &transcoderNotFound{Code: strconv.Itoa(int(TranscoderNotFound)), Address: address}
}

type transcoderExists struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewTranscoderExists(address string) *transcoderExists {
	return &transcoderExists{Code: strconv.Itoa(int(TranscoderExists)), Address: address}
}

type ineligibleCaller struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
	Status  string `json:"status,omitempty"`
}

func NewIneligibleCaller(address, status string) *ineligibleCaller {
	return &ineligibleCaller{Code: strconv.Itoa(int(IneligibleCaller)), Address: address, Status: status}
}

type duplicateRewardClaim struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
	Round   string `json:"round,omitempty"`
}

func NewDuplicateRewardClaim(address, round string) *duplicateRewardClaim {
	return &duplicateRewardClaim{Code: strconv.Itoa(int(DuplicateRewardClaim)), Address: address, Round: round}
}

type insufficientStake struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
	Stake   string `json:"stake,omitempty"`
}

func NewInsufficientStake(address, stake string) *insufficientStake {
	return &insufficientStake{Code: strconv.Itoa(int(InsufficientStake)), Address: address, Stake: stake}
}

type poolDepleted struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewPoolDepleted(address string) *poolDepleted {
	return &poolDepleted{Code: strconv.Itoa(int(PoolDepleted)), Address: address}
}

type stakeShouldBePositive struct {
	Code  string `json:"code,omitempty"`
	Stake string `json:"stake,omitempty"`
}

func NewStakeShouldBePositive(stake string) *stakeShouldBePositive {
	return &stakeShouldBePositive{Code: strconv.Itoa(int(StakeShouldBePositive)), Stake: stake}
}

type delegatorNotFound struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewDelegatorNotFound(address string) *delegatorNotFound {
	return &delegatorNotFound{Code: strconv.Itoa(int(DelegatorNotFound)), Address: address}
}
