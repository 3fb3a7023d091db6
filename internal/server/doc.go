// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，用于在本地托管被测应用替身。

# 核心类型

  - Manager：持有 http.Server 与 net.Listener，提供 Start/Run/Shutdown。
  - Config：监听地址、读取超时与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 阻塞运行：Run 在 ctx 结束或服务异常退出时返回，并完成优雅关闭。
  - 随机端口：监听 "127.0.0.1:0" 后通过 ListenAddr/URL 获取实际地址。
*/
package server
