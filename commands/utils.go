package commands

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/config"
	"grant_proposal_advisor/logging"
)

// stack is everything a command needs to build advisors.
type stack struct {
	cfg       config.Config
	log       *logging.Logger
	llm       advisor.LLMClient
	questions advisor.QuestionTable
}

func loadStack() (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogMode, logLevel())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	llm, err := advisor.NewLLMFromSettings(cfg.LLMSettings())
	if err != nil {
		return nil, err
	}
	questions := advisor.DefaultQuestions()
	if cfg.QuestionsPath != "" {
		if questions, err = advisor.LoadQuestions(cfg.QuestionsPath); err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
	}
	log.Debug("config loaded", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "api_key", cfg.LLM.APIKey)
	return &stack{cfg: cfg, log: log, llm: llm, questions: questions}, nil
}

// newEngine builds one engine; every session or process gets its own.
func (s *stack) newEngine() (*advisor.Engine, error) {
	c, err := advisor.NewCompleter(s.llm, s.cfg.MaxDecodeAttempts, s.log)
	if err != nil {
		return nil, err
	}
	return advisor.NewEngine(c, s.questions, s.log)
}

func logLevel() zapcore.Level {
	switch {
	case verbose:
		return zapcore.DebugLevel
	case quiet:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
