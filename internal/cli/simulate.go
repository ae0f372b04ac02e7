package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateOversold   float64
	simulateOverbought float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-digest",
	Short: "用合成读数触发一次告警摘要",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOversold <= 0 || simulateOverbought <= 0 {
			return errors.New("--oversold 与 --overbought 必须大于 0")
		}

		return getApp().SimulateDigest(cmd.Context(), simulateOversold, simulateOverbought)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateOversold, "oversold", 22, "合成超卖 RSI 读数")
	simulateCmd.Flags().Float64Var(&simulateOverbought, "overbought", 78, "合成超买 RSI 读数")
}
