// 版权所有 2025 SnowFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 API 与 metrics 两个 HTTP 监听器的生命周期。

Manager 先同步 Listen 再异步 Serve，绑定失败（典型的是端口被占）
在 Start 的返回值里立刻暴露。关闭走 Shutdown 的排空语义，
WaitForShutdown 把 SIGINT/SIGTERM 与 Serve 异常退出收敛成同一条
关闭路径。测试以 ":0" 启动，再从 Addr 取实际端口。
*/
package server
