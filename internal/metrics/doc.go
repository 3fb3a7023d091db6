// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的检查点与运行指标采集。

# 概述

Collector 使用独立 Registry（promauto.With），每次运行结束后通过
WriteTextfile 以 node_exporter textfile 格式落盘，供 textfile collector
抓取。单次运行的 CLI 进程不暴露 HTTP 端点。

# 核心类型

  - Collector：实现 workflow.Observer，检查点结束时记录耗时与状态。

# 指标

  - <ns>_checkpoint_duration_seconds{label}
  - <ns>_checkpoint_total{label,status}
  - <ns>_run_total{outcome}
  - <ns>_run_duration_seconds
  - <ns>_last_run_success / <ns>_last_run_timestamp_seconds
*/
package metrics
