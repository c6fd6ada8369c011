package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage 表示 dealer 固定且有序的换装阶段
type Stage int

const (
	StageCasinoUniform Stage = iota + 1
	StageRelaxedAttire
	StageCasualFormal
	StageCocktailAttire
	StageSwimsuitLingerie
)

// StageInfo 阶段编号与显示名称
type StageInfo struct {
	Stage Stage  `json:"stage"`
	Name  string `json:"name"`
}

var stageNames = [...]string{
	StageCasinoUniform:    "Casino Uniform",
	StageRelaxedAttire:    "Relaxed Attire",
	StageCasualFormal:     "Casual/Formal",
	StageCocktailAttire:   "Cocktail Attire",
	StageSwimsuitLingerie: "Swimsuit/Lingerie",
}

// Valid 判断是否为已注册的阶段
func (s Stage) Valid() bool {
	return s >= StageCasinoUniform && s <= StageSwimsuitLingerie
}

// String 返回阶段显示名称，未知阶段返回 "Stage N"。
func (s Stage) String() string {
	if !s.Valid() {
		return "Stage " + strconv.Itoa(int(s))
	}
	return stageNames[s]
}

// StageName 返回阶段显示名称，未知阶段返回 ErrUnknownStage
func StageName(stage Stage) (string, error) {
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownStage, int(stage))
	}
	return stageNames[stage], nil
}

// Stages 按阶段升序列出全部阶段
func Stages() []StageInfo {
	out := make([]StageInfo, 0, StageSwimsuitLingerie)
	for s := StageCasinoUniform; s <= StageSwimsuitLingerie; s++ {
		out = append(out, StageInfo{Stage: s, Name: stageNames[s]})
	}
	return out
}

// ParseStage 解析路径或命令行参数中的阶段编号。
func ParseStage(raw string) (Stage, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	stage := Stage(n)
	if !stage.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStage, n)
	}
	return stage, nil
}
