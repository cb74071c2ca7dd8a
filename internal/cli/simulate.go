package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateWeapon string
	simulatePrice  int64
	simulateMedian int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条低价 riven 并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateWeapon == "" {
			return errors.New("--weapon 不能为空")
		}
		if simulatePrice <= 0 || simulateMedian <= 0 {
			return errors.New("--price 与 --median 必须大于 0")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateWeapon, simulatePrice, simulateMedian)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateWeapon, "weapon", "", "武器名称")
	simulateCmd.Flags().Int64Var(&simulatePrice, "price", 0, "挂单价格（白金）")
	simulateCmd.Flags().Int64Var(&simulateMedian, "median", 0, "基准中位价（白金）")
}
